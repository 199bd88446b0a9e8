// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"log"

	"github.com/pkg/errors"
)

// Error returns the error status of the BDD. We return an empty string if there
// are no errors.
func (b *BDD) Error() string {
	if b.error == nil {
		return ""
	}
	return b.error.Error()
}

// Errored returns true if there was an error during a computation.
func (b *BDD) Errored() bool {
	return b.error != nil
}

// Err returns the sticky error of the BDD, or nil.
func (b *BDD) Err() error {
	return b.error
}

func (b *BDD) seterror(format string, a ...interface{}) Node {
	if b.error != nil {
		b.error = errors.Wrapf(b.error, format, a...)
		return nil
	}
	b.error = errors.Errorf(format, a...)
	if _DEBUG {
		log.Println(b.error)
	}
	return nil
}
