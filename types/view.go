package types

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// View is the rendered form of a screen, actions keep their insertion order
// so buttons are laid out the way the screen declares them.
type View struct {
	Text    string
	Actions *orderedmap.OrderedMap[string, string]
}

func NewView(text string) View {
	return View{
		Text:    text,
		Actions: orderedmap.New[string, string](),
	}
}

// Add appends a button with the given action id and label
func (v View) Add(action, label string) View {
	v.Actions.Set(action, label)
	return v
}

// Action is a parsed button id of the form name or name:arg
type Action struct {
	Name string
	Arg  string
}

func ParseAction(id string) Action {
	name, arg, _ := strings.Cut(id, ":")
	return Action{Name: name, Arg: arg}
}

func (a Action) String() string {
	if a.Arg == "" {
		return a.Name
	}
	return a.Name + ":" + a.Arg
}

func ActionID(name, arg string) string {
	return Action{Name: name, Arg: arg}.String()
}
