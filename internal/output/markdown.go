package output

import (
	"bytes"
	"fmt"
	"io"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/zyniel/westie/internal/event"
)

var markdownColumns = []string{"Event", "Dates", "Location", "Kind"}

// WriteMarkdown writes the table as a GitHub-flavored Markdown table.
func WriteMarkdown(w io.Writer, table *event.Table) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, eventTableHTML(table)); err != nil {
		return fmt.Errorf("failed to render event table: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	out, err := converter.ConvertString(buf.String())
	if err != nil {
		return fmt.Errorf("failed to convert event table: %w", err)
	}
	_, err = io.WriteString(w, "# Events\n\n"+out+"\n")
	return err
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func eventTableHTML(table *event.Table) *html.Node {
	head := element(atom.Tr)
	for _, col := range markdownColumns {
		head.AppendChild(element(atom.Th, textNode(col)))
	}

	body := element(atom.Tbody)
	for _, entry := range table.Entries() {
		e := entry.Event

		name := textNode(e.Name())
		if u := e.WebsiteURL(); u != nil {
			link := element(atom.A, name)
			link.Attr = []html.Attribute{{Key: "href", Val: u.String()}}
			name = link
		}

		dates := e.Start().Format("2006-01-02")
		if !e.End().Equal(e.Start()) {
			dates += " → " + e.End().Format("2006-01-02")
		}

		body.AppendChild(element(atom.Tr,
			element(atom.Td, name),
			element(atom.Td, textNode(dates)),
			element(atom.Td, textNode(e.Location())),
			element(atom.Td, textNode(e.Kind().String())),
		))
	}

	return element(atom.Table, element(atom.Thead, head), body)
}
