// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"os"
	"strings"
	"testing"
)

// Files derived from Apache-2.0 sources keep their notice.
func TestApacheNotices(t *testing.T) {
	for _, f := range []string{"cache.go", "debug.go", "nodebug.go", "primes.go", "stdio.go"} {
		src, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(src[:600]), "Licensed under the Apache License, Version 2.0") {
			t.Errorf("%s: expected an Apache-2.0 notice", f)
		}
	}
}
