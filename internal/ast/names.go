package ast

import (
	"errors"
	"strings"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/space"
)

func lastName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// hintFor suggests a close name when err is an undefined-name error.
func hintFor(err error, name string, candidates []string) string {
	if !errors.Is(err, space.ErrUndefined) {
		return ""
	}
	return diag.Suggest(name, candidates)
}
