package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zyniel/westie/internal/page"
)

func TestElementJS(t *testing.T) {
	css := elementJS("div[id^='screenScrollView']")
	assert.True(t, strings.HasPrefix(css, "Array.from(document.querySelectorAll("))
	assert.Contains(t, css, `"div[id^='screenScrollView']"`)

	xpath := elementJS("//div[@data-test='x']")
	assert.Contains(t, xpath, "document.evaluate(")
	assert.Contains(t, xpath, `"//div[@data-test='x']"`)
}

func TestFindChrome_Explicit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not meaningful on windows")
	}

	dir := t.TempDir()
	exe := filepath.Join(dir, "chrome")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake browser: %v", err)
	}

	if got := FindChrome(context.Background(), exe); got != exe {
		t.Errorf("FindChrome() = %q, want %q", got, exe)
	}

	plain := filepath.Join(dir, "not-executable")
	if err := os.WriteFile(plain, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if got := FindChrome(context.Background(), plain); got == plain {
		t.Errorf("FindChrome() accepted a non-executable path")
	}
}

func TestStale(t *testing.T) {
	err := stale(context.Background(), errors.New("No node with given id found"))
	assert.ErrorIs(t, err, page.ErrStale)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, stale(ctx, errors.New("boom")), context.Canceled)
}

func TestNodeOf_ForeignHandle(t *testing.T) {
	_, err := nodeOf(fakeHandle("x"))
	assert.ErrorIs(t, err, page.ErrStale)
}

type fakeHandle string

func (h fakeHandle) String() string { return string(h) }
