// Package prompt wraps promptui for drawfsctl's interactive commands.
package prompt

import "github.com/manifoldco/promptui"

// SelectOption is one entry in a selection list.
type SelectOption struct {
	Label string
	Value string
}

// Select prompts the user to choose among options and returns the chosen
// value.
func Select(label string, options []SelectOption) (string, error) {
	items := make([]string, len(options))
	for i, o := range options {
		items[i] = o.Label
	}

	p := promptui.Select{
		Label: label,
		Items: items,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . | white }}",
			Selected: "* {{ . | green }}",
		},
		Size: 10,
	}

	i, _, err := p.Run()
	if err != nil {
		return "", err
	}
	return options[i].Value, nil
}
