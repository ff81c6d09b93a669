package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/ports"
)

const repairPrompt = `While parsing the %s below I am getting this error: %v

%s

Fix the parsing issue by correcting the %s. Quote values that contain ":" or other special characters.
Return only the corrected %s and nothing else.`

// DecodeWithRepair decodes text into T. If that fails with a ParseError it
// makes exactly one repair request to the completer, embedding the error,
// and decodes the reply. A second failure is returned as a ParseError
// wrapping both attempts.
func DecodeWithRepair[T any](ctx context.Context, c ports.Completer, text string) (T, error) {
	out, err := Decode[T](text)
	if err == nil {
		return out, nil
	}
	var perr *domain.ParseError
	if !errors.As(err, &perr) || c == nil {
		return out, err
	}

	prompt := fmt.Sprintf(repairPrompt, perr.Format, perr.Err, perr.Input, perr.Format, perr.Format)
	fixed, cerr := c.Complete(ctx, prompt)
	if cerr != nil {
		return out, &domain.CollaboratorUnavailable{Service: "completion", Err: errors.Join(err, cerr)}
	}

	out, err2 := Decode[T](fixed)
	if err2 != nil {
		return out, &domain.ParseError{
			Format: perr.Format,
			Input:  fixed,
			Err:    fmt.Errorf("still invalid after repair: %w (first attempt: %v)", err2, perr.Err),
		}
	}
	return out, nil
}
