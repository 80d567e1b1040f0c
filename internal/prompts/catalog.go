// Package prompts holds the voice texts and ask parameters used during a call.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EndButtonPlaceholder is replaced by the configured end button in prompt
// texts. See BindEndButton.
const EndButtonPlaceholder = "{end_button}"

// Ask describes one interactive prompt.
type Ask struct {
	Text           string   `yaml:"text"`
	Choices        []string `yaml:"choices"`
	Mode           string   `yaml:"mode"`
	Attempts       int      `yaml:"attempts"`
	TimeoutSeconds float64  `yaml:"timeout_seconds"`
}

// Timeout returns the per-attempt timeout.
func (a Ask) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds * float64(time.Second))
}

// Catalog is the full set of prompts for the demo call.
type Catalog struct {
	Voice string `yaml:"voice"`

	Welcome           string `yaml:"welcome"`
	StartClient       Ask    `yaml:"start_client"`
	CannotConnect     string `yaml:"cannot_connect"`
	WaitReconnect     Ask    `yaml:"wait_reconnect"`
	Reconnected       string `yaml:"reconnected"`
	SelectButton      Ask    `yaml:"select_button"`
	ButtonPressed     string `yaml:"button_pressed"` // fmt verb receives the button name
	EndButton         string `yaml:"end_button"`
	RemoteEnded       string `yaml:"remote_ended"`
	CannotCommunicate string `yaml:"cannot_communicate"`
	Goodbye           string `yaml:"goodbye"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	digit := []string{"[1 DIGIT]"}
	return &Catalog{
		Voice:   "vanessa",
		Welcome: "Welcome to the ChoiceView visual IVR demo from Radish Systems.",
		StartClient: Ask{
			Text:           "Stay on this call and return to the Home screen. Tap ChoiceView, then tap Start",
			Choices:        digit,
			Mode:           "dtmf",
			Attempts:       3,
			TimeoutSeconds: 10,
		},
		CannotConnect: "Cannot connect to the ChoiceView server at this time.  Please try again later.",
		WaitReconnect: Ask{
			Text:           "Waiting for the mobile device to reconnect.",
			Choices:        digit,
			Mode:           "dtmf",
			Attempts:       5,
			TimeoutSeconds: 10,
		},
		Reconnected: "Device has reconnected...",
		SelectButton: Ask{
			Text:           "Please select one of the buttons. Button " + EndButtonPlaceholder + " will end this demo.",
			Choices:        digit,
			Mode:           "dtmf",
			Attempts:       5,
			TimeoutSeconds: 10,
		},
		ButtonPressed:     "You pressed %s.",
		EndButton:         "This button ends the demo.",
		RemoteEnded:       "The ChoiceView server has ended the session.",
		CannotCommunicate: "Cannot communicate with the mobile device, try again later.",
		Goodbye:           "Thank you for using ChoiceView. Goodbye.",
	}
}

// Load returns the default catalog overlaid with the YAML file at path.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	c.merge(&overlay)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every ask can actually end.
func (c *Catalog) Validate() error {
	asks := map[string]Ask{
		"start_client":   c.StartClient,
		"wait_reconnect": c.WaitReconnect,
		"select_button":  c.SelectButton,
	}
	for name, a := range asks {
		if a.Attempts <= 0 {
			return fmt.Errorf("prompt %s: attempts must be positive", name)
		}
		if a.TimeoutSeconds <= 0 {
			return fmt.Errorf("prompt %s: timeout_seconds must be positive", name)
		}
	}
	if c.ButtonPressed == "" {
		return errors.New("prompt button_pressed must not be empty")
	}
	return nil
}

// BindEndButton fills EndButtonPlaceholder in the selection prompt and the
// end-button prompt with the button that ends the call.
func (c *Catalog) BindEndButton(button string) {
	c.SelectButton.Text = strings.ReplaceAll(c.SelectButton.Text, EndButtonPlaceholder, button)
	c.EndButton = strings.ReplaceAll(c.EndButton, EndButtonPlaceholder, button)
}

// PressedText renders the feedback for a button press.
func (c *Catalog) PressedText(buttonName string) string {
	return fmt.Sprintf(c.ButtonPressed, buttonName)
}

func (c *Catalog) merge(o *Catalog) {
	setString(&c.Voice, o.Voice)
	setString(&c.Welcome, o.Welcome)
	setString(&c.CannotConnect, o.CannotConnect)
	setString(&c.Reconnected, o.Reconnected)
	setString(&c.ButtonPressed, o.ButtonPressed)
	setString(&c.EndButton, o.EndButton)
	setString(&c.RemoteEnded, o.RemoteEnded)
	setString(&c.CannotCommunicate, o.CannotCommunicate)
	setString(&c.Goodbye, o.Goodbye)
	c.StartClient.merge(o.StartClient)
	c.WaitReconnect.merge(o.WaitReconnect)
	c.SelectButton.merge(o.SelectButton)
}

func (a *Ask) merge(o Ask) {
	setString(&a.Text, o.Text)
	setString(&a.Mode, o.Mode)
	if len(o.Choices) > 0 {
		a.Choices = o.Choices
	}
	if o.Attempts != 0 {
		a.Attempts = o.Attempts
	}
	if o.TimeoutSeconds != 0 {
		a.TimeoutSeconds = o.TimeoutSeconds
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
