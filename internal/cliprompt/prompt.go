// Package cliprompt wraps promptui for the bpa CLI's interactive wizards
// (currently `bpa init`'s node/CLA setup), trimmed to the handful of
// prompt kinds that wizard needs.
package cliprompt

import (
	"errors"
	"strconv"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt (Ctrl+C).
var ErrAborted = errors.New("cliprompt: aborted")

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}

// Input prompts for a line of text, pre-filled with defaultValue.
func Input(label, defaultValue string) (string, error) {
	result, err := (&promptui.Prompt{Label: label, Default: defaultValue}).Run()
	return result, wrap(err)
}

// InputRequired prompts for non-empty text.
func InputRequired(label string) (string, error) {
	p := &promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if s == "" {
				return errors.New("a value is required")
			}
			return nil
		},
	}
	result, err := p.Run()
	return result, wrap(err)
}

// InputPort prompts for a TCP port, defaulting to defaultValue.
func InputPort(label string, defaultValue int) (int, error) {
	p := &promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(defaultValue),
		Validate: func(s string) error {
			port, err := strconv.Atoi(s)
			if err != nil || port < 1 || port > 65535 {
				return errors.New("must be a port number between 1 and 65535")
			}
			return nil
		},
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrap(err)
	}
	port, _ := strconv.Atoi(result)
	return port, nil
}

// Confirm prompts for a yes/no answer, defaulting to defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	suffix := "y/N"
	if defaultYes {
		suffix = "Y/n"
	}
	result, err := (&promptui.Prompt{Label: label + " [" + suffix + "]", IsConfirm: true}).Run()
	switch {
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case err != nil && result == "":
		return defaultYes, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// Select prompts the user to choose one of items, returning the chosen
// string.
func Select(label string, items []string) (string, error) {
	_, result, err := (&promptui.Select{Label: label, Items: items, Size: len(items)}).Run()
	return result, wrap(err)
}
