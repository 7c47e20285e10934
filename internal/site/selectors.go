// Package site collects the Westie App markup the scraper depends on. When the
// app changes its layout this is the only file that should need an update.
package site

// DefaultURL is the app entry point.
const DefaultURL = "https://westie.app/"

// Section markers. Each is visible only while its screen is shown.
const (
	EventsHeader  = "//div[@id='app-root']//div[@data-test='nav-bar']/h1[contains(text(), 'Évènements à venir')]"
	LessonsHeader = "//div[@id='app-root']//div[@data-test='nav-bar']/h1[contains(text(), 'Stages & Soirées')]"
	HomeHeader    = "//div[@id='app-root']//div[@data-test='nav-bar']/h1[contains(text(), 'Accueil')]"
	EmailInput    = "//div[@id='app-root']//form/input[@data-test='app-email-input']"
	PinInput      = "//div[@id='app-root']//form/input[@data-test='app-pin-input']"
)

// Navigation.
const (
	LoginContinueButton = "//*[@id='app-root']/div[2]/div/div/div/div[3]/button[1]"
	HomeEventsTile      = "//div[starts-with(@id, 'screenScrollView')]//div[@class='tile-title' and @data-test='tile-item-title' and contains(text(), 'Évènements')]"
)

// Event list.
const (
	// ScrollRoot is the scrollable container of the current screen.
	ScrollRoot = "div[id^='screenScrollView']"
	// Viewport is the visible window over the list.
	Viewport = "div[id^='OverlayscreenScrollView']"
	// ListItems matches every rendered entry of the virtualized list.
	ListItems = "div[id^='screenScrollView'] div[data-test='app-vertical-list'] > div[class^='vlist___'] > div[class^='vlist___'] > div[data-index]"
	// TileRow is the visible card inside a list entry.
	TileRow = "div.tile-inner"
	// IndexAttribute carries the entry's stable position.
	IndexAttribute = "data-index"
)

// Overlays hidden before snapshots.
var HUD = []string{
	"div[data-test='app-toggle-icon-overlay']",
	"div[id^='OverlayscreenScrollView'].fab-target",
}
