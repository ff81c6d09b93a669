package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Format names used in ParseError.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

var (
	fenceRe      = regexp.MustCompile("(?s)```([a-zA-Z]*)[ \t]*\r?\n(.*?)```")
	leadingIntRe = regexp.MustCompile(`-?\d+`)
	errNoBlock   = errors.New("no structured block found")
)

// Block locates the structured block inside model output. A fenced block
// tagged yaml, yml or json wins, then any fenced block, then the whole text.
// It returns the detected format and the block body.
func Block(text string) (string, string) {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		switch strings.ToLower(m[1]) {
		case "yaml", "yml":
			return FormatYAML, strings.TrimSpace(m[2])
		case "json":
			return FormatJSON, strings.TrimSpace(m[2])
		}
	}
	body := strings.TrimSpace(text)
	if len(matches) > 0 {
		body = strings.TrimSpace(matches[0][2])
	}
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return FormatJSON, body
	}
	return FormatYAML, body
}

// Decode extracts the structured block from text and decodes it into T.
// Failures are reported as *domain.ParseError.
func Decode[T any](text string) (T, error) {
	var out T
	format, body := Block(text)
	if body == "" {
		return out, &domain.ParseError{Format: format, Input: text, Err: errNoBlock}
	}

	raw, err := parseRaw(format, body)
	if err != nil {
		return out, &domain.ParseError{Format: format, Input: body, Err: err}
	}
	if err := weakDecode(raw, &out); err != nil {
		return out, &domain.ParseError{Format: format, Input: body, Err: err}
	}
	return out, nil
}

func parseRaw(format, body string) (any, error) {
	var raw any
	if format == FormatJSON {
		if err := json.Unmarshal([]byte(body), &raw); err == nil {
			return raw, nil
		}
		repaired, err := jsonrepair.JSONRepair(body)
		if err != nil {
			return nil, fmt.Errorf("repair json: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNoBlock
	}
	return raw, nil
}

func weakDecode(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			lenientIntHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// lenientIntHook accepts values like "5 days" for integer fields.
func lenientIntHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" || strings.EqualFold(s, "null") {
		return 0, nil
	}
	if _, err := strconv.Atoi(s); err == nil {
		return data, nil
	}
	if m := leadingIntRe.FindString(s); m != "" {
		return m, nil
	}
	return data, nil
}
