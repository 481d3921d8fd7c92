package utils

import "strings"

// SplitSpaces splits a space delimited parameter such as scope, dropping empty entries.
func SplitSpaces(s string) []string {
	return strings.Fields(s)
}

// Contains reports whether v is in the slice.
func Contains[T comparable](slice []T, v T) bool {
	for _, s := range slice {
		if s == v {
			return true
		}
	}
	return false
}
