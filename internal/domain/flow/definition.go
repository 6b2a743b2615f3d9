// Package flow defines parsed flow and screen definitions plus the typed
// session values carried across navigation.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
)

// Screen is a single renderable unit within a flow. The widget tree itself is
// opaque to the core; RawJSON is handed unmodified to the rendering layer.
type Screen struct {
	ID      string
	Title   string
	RawJSON json.RawMessage
}

// Definition is a parsed flow: a named bundle of screens loaded from one JSON
// resource. ScreenOrder preserves declaration order so "first declared screen"
// is deterministic regardless of map iteration.
type Definition struct {
	FlowID      string
	Screens     map[string]*Screen
	ScreenOrder []string
}

// flowDocument mirrors the raw top-level JSON shape. A document is either a
// multi-screen flow (screens key) or a single-widget definition (type key).
type flowDocument struct {
	Type    string                     `json:"type"`
	FlowID  string                     `json:"flowId"`
	Screens map[string]json.RawMessage `json:"screens"`
}

// ParseDefinition decodes a raw flow document into a Definition, validating
// the minimal shape and capturing screen declaration order.
func ParseDefinition(flowID string, data []byte) (*Definition, error) {
	if err := ValidateStructure(data); err != nil {
		return nil, err
	}

	var doc flowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("flow %s is not valid JSON", flowID), err)
	}
	if doc.FlowID != "" {
		flowID = doc.FlowID
	}

	def := &Definition{
		FlowID:  flowID,
		Screens: make(map[string]*Screen),
	}

	if doc.Screens == nil {
		// Single-widget document: wrap it as a flow with one implicit screen
		// named after the flow itself.
		def.Screens[flowID] = &Screen{ID: flowID, RawJSON: json.RawMessage(data)}
		def.ScreenOrder = []string{flowID}
		return def, nil
	}

	order, err := screenDeclarationOrder(data)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("flow %s has malformed screens map", flowID), err)
	}

	for _, id := range order {
		raw := doc.Screens[id]
		scr := &Screen{ID: id, RawJSON: raw}
		var meta struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(raw, &meta); err == nil {
			scr.Title = meta.Title
		}
		def.Screens[id] = scr
	}
	def.ScreenOrder = order

	return def, nil
}

// ValidateStructure performs the minimal shape check on a raw definition: it
// must contain either a top-level type key (single widget) or a screens key
// (multi-screen flow).
func ValidateStructure(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "definition is not a JSON object", err)
	}
	if _, ok := top["type"]; ok {
		return nil
	}
	if _, ok := top["screens"]; ok {
		return nil
	}
	return domainErrors.ErrInvalidDefinition
}

// screenDeclarationOrder walks the JSON token stream to recover the key order
// of the top-level screens object, which encoding/json maps discard.
func screenDeclarationOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Seek the top-level "screens" key.
	if _, err := dec.Token(); err != nil { // opening {
		return nil, err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key == "screens" {
			return objectKeys(dec)
		}
		// Skip the value of any other top-level key.
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("screens key not found")
}

// objectKeys reads an object from the decoder and returns its keys in order.
func objectKeys(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("screens is not an object")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string screen key")
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	_, err = dec.Token() // closing }
	return keys, err
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar
	}
	switch d {
	case '{', '[':
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing delim
		return err
	}
	return nil
}

// HasScreen reports whether the definition declares the given screen.
func (d *Definition) HasScreen(screenID string) bool {
	_, ok := d.Screens[screenID]
	return ok
}

// FirstScreenID returns the first declared screen, or an error when the flow
// declares none.
func (d *Definition) FirstScreenID() (string, error) {
	if len(d.ScreenOrder) == 0 {
		return "", domainErrors.ErrFlowHasNoScreens
	}
	return d.ScreenOrder[0], nil
}

// NavigationEntry is one step in the navigation history stack.
type NavigationEntry struct {
	FlowID    string
	ScreenID  string
	Timestamp time.Time
}
