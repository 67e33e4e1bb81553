package tui

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/session"
	"github.com/y-ui/yuictl/internal/validation"
)

// AutoForm builds a huh.Form from a struct pointer. Fields are configured by
// the `tui:"key=value,..."` tag: title, desc, type=password, validate and
// options ("Label:value|value"). Titles are translated through p when set.
func AutoForm(v any, p *message.Printer) *huh.Form {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		panic("AutoForm requires a pointer to a struct")
	}

	tr := func(s string) string {
		if p == nil || s == "" {
			return s
		}
		return p.Sprintf(s)
	}

	el := val.Elem()
	t := el.Type()
	var fields []huh.Field

	for i := 0; i < el.NumField(); i++ {
		field := el.Field(i)
		tag := t.Field(i).Tag.Get("tui")
		if tag == "" {
			continue
		}

		props := parseTag(tag)
		title := props["title"]
		if title == "" {
			title = t.Field(i).Name
		}
		title, desc := tr(title), tr(props["desc"])

		switch field.Kind() {
		case reflect.String:
			ptr := field.Addr().Interface().(*string)
			if opts, ok := props["options"]; ok {
				fields = append(fields, huh.NewSelect[string]().
					Title(title).
					Description(desc).
					Options(parseOptions(opts)...).
					Value(ptr))
				continue
			}

			input := huh.NewInput().
				Title(title).
				Description(desc).
				Value(ptr)
			if props["type"] == "password" {
				input.EchoMode(huh.EchoModePassword)
			}
			if validator, ok := Validators[props["validate"]]; ok {
				input.Validate(validator)
			}
			fields = append(fields, input)

		case reflect.Bool:
			fields = append(fields, huh.NewConfirm().
				Title(title).
				Description(desc).
				Value(field.Addr().Interface().(*bool)))
		}
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeBase16())
}

// parseTag splits "key=val,key2=val2".
func parseTag(tag string) map[string]string {
	res := make(map[string]string)
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			res[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return res
}

// parseOptions splits "Label:value|value".
func parseOptions(s string) []huh.Option[string] {
	var out []huh.Option[string]
	for _, o := range strings.Split(s, "|") {
		key, value, found := strings.Cut(o, ":")
		if !found {
			value = key
		}
		out = append(out, huh.NewOption(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	return out
}

// Validators are referenced by name from the validate tag.
var Validators = map[string]func(string) error{
	"required": func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("this field is required")
		}
		return nil
	},
	"password": func(s string) error {
		if len(s) < session.MinPasswordLength {
			return fmt.Errorf("at least %d characters", session.MinPasswordLength)
		}
		return nil
	},
	"email": func(s string) error {
		if validation.ValidateEmail(s) != nil {
			return errors.New("must be a valid email address")
		}
		return nil
	},
	"account": validation.ValidateAccount,
	"port": func(s string) error {
		port, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("must be a number")
		}
		return validation.ValidatePortNumber(port)
	},
}
