package domain

type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldHidden FieldKind = "hidden"
	// FieldChoice covers checkbox, radio and select fields.
	FieldChoice FieldKind = "choice"
)

type FieldOption struct {
	Value string
	Label string
}

// FormField is one named input of a form snapshot. Fields sharing a
// PHP array name ("remove_items[]") are merged into a single entry.
type FormField struct {
	Name    string
	Param   string
	Kind    FieldKind
	Values  []string
	Options []FieldOption
}

func (f FormField) Value() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

func (f FormField) IsList() bool {
	return f.Param != f.Name
}

func (f FormField) OptionValues() []string {
	out := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		out = append(out, o.Value)
	}
	return out
}
