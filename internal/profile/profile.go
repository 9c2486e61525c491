// Package profile loads the deployment profile: the service name,
// location and timing knobs that vary per congregation. Profiles are
// CUE files validated against an embedded schema, so a typo or an
// out-of-range knob fails at load with a positioned error instead of
// surfacing mid-service.
package profile

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Profile carries the per-deployment settings.
type Profile struct {
	Service           string `json:"service"`
	Location          string `json:"location"`
	UndoWindowSeconds int    `json:"undoWindowSeconds"`
	ExpiryHour        int    `json:"expiryHour"`
	ExpiryMinute      int    `json:"expiryMinute"`
}

// Default returns the profile used when no file is given.
func Default() Profile {
	return Profile{
		Service:           "Teens Service",
		Location:          "Main Hall",
		UndoWindowSeconds: 5,
		ExpiryHour:        12,
		ExpiryMinute:      0,
	}
}

// UndoWindow returns the undo affordance duration.
func (p Profile) UndoWindow() time.Duration {
	return time.Duration(p.UndoWindowSeconds) * time.Second
}

// Load reads and validates a profile file.
//
// The file is unified with the embedded schema, which supplies the
// defaults, and must come out fully concrete.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return parse(path, string(data))
}

func parse(filename, source string) (Profile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Profile{}, fmt.Errorf("compiling profile schema: %w", err)
	}

	val := ctx.CompileString(source, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return Profile{}, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Profile")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Profile{}, formatCUEError(err)
	}

	var p Profile
	if err := unified.Decode(&p); err != nil {
		return Profile{}, formatCUEError(err)
	}
	return p, nil
}

// LoadError is a profile problem with its source position when CUE
// can point at one.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError surfaces the first CUE error with position info.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Message: first.Error()}
}
