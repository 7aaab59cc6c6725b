package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/Tyrowin/livechat/internal/chat"
)

const anonymous = "Anonymous"

var (
	avatarPalette = []color.Style{
		color.New(color.FgMagenta),
		color.New(color.FgLightMagenta),
		color.New(color.FgBlue),
		color.New(color.FgGreen),
		color.New(color.FgYellow),
	}
	ownStyle    = color.New(color.FgCyan, color.OpBold)
	systemStyle = color.New(color.FgGray, color.OpItalic)
)

// Renderer formats room events for a terminal.
type Renderer struct {
	self    string
	colours bool
	now     func() time.Time
}

// NewRenderer returns a Renderer for the user registered as self.
func NewRenderer(self string, colours bool) *Renderer {
	return &Renderer{self: self, colours: colours, now: time.Now}
}

// AvatarIndex picks a palette slot from the sum of the name's code points.
func AvatarIndex(name string, paletteSize int) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return sum % paletteSize
}

// Initials returns up to two upper-case initials of name.
func Initials(name string) string {
	words := strings.Fields(name)
	letters := lo.Map(words, func(word string, _ int) string {
		return string([]rune(word)[:1])
	})
	initials := []rune(strings.ToUpper(strings.Join(letters, "")))
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return string(initials)
}

// Message renders one chat line.
func (r *Renderer) Message(msg chat.Message) string {
	if msg.IsSystem() {
		return r.paint(systemStyle, "-- "+msg.Text+" --")
	}

	sender := msg.Sender
	if sender == "" {
		sender = anonymous
	}

	label := sender
	style := avatarPalette[AvatarIndex(sender, len(avatarPalette))]
	if sender == r.self {
		label = "You"
		style = ownStyle
	}

	avatar := r.paint(style, "["+Initials(sender)+"]")
	return fmt.Sprintf("%s %s %s (%s): %s", r.clock(msg.Timestamp), avatar, r.paint(style, label), r.ago(msg.Timestamp), msg.Text)
}

// Roster writes the online users as a table.
func (r *Renderer) Roster(w io.Writer, users []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(lo.Map(users, func(name string, i int) []string {
		if name == r.self {
			name += " (you)"
		}
		return []string{strconv.Itoa(i + 1), name}
	}))
	table.SetFooter([]string{"", fmt.Sprintf("%d online", len(users))})
	table.Render()
}

func (r *Renderer) paint(style color.Style, s string) string {
	if !r.colours {
		return s
	}
	return style.Render(s)
}

func (r *Renderer) clock(ts time.Time) string {
	if ts.IsZero() {
		ts = r.now()
	}
	return ts.Local().Format(time.TimeOnly)
}

// ago renders a coarse relative time.
func (r *Renderer) ago(ts time.Time) string {
	if ts.IsZero() {
		return "just now"
	}
	elapsed := r.now().Sub(ts)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(elapsed.Hours()/24))
	}
}
