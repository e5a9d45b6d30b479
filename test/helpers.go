// Package test holds helpers shared by the tests of this module.
package test

import (
	"io/ioutil"
	"os"
	"reflect"
	"testing"
)

// MustBe fails the test unless got and want are deeply equal. An optional
// context string prefixes the failure message.
func MustBe(t *testing.T, want, got interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) > 0 {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("%vwant '%#v', got '%#v'", ctx, want, got)
	}
}

// ErrNil fails the test if err is non-nil.
func ErrNil(t *testing.T, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// MustTempDir makes a temporary directory which is removed when the test
// finishes.
func MustTempDir(t *testing.T, prefix string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", prefix)
	ErrNil(t, err, "getting temp dir")
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
