package transfer

import "fmt"

// InputError reports an input file that could not be read
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("unable to read input file %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// OutputDirError reports an output directory that cannot be used. It aborts
// the whole run.
type OutputDirError struct {
	Path string
	Err  error
}

func (e *OutputDirError) Error() string {
	return fmt.Sprintf("output directory %q unusable: %v", e.Path, e.Err)
}

func (e *OutputDirError) Unwrap() error {
	return e.Err
}
