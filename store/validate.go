package store

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxKeyLength = 1024

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// ValidateBucketName checks the general purpose S3 bucket naming rules:
// 3 to 63 characters of lowercase letters, digits, dots and hyphens, starting and ending
// with a letter or digit, no adjacent dots, and not formatted as an IP address.
func ValidateBucketName(name string) error {
	if !bucketNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidBucketName, name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains adjacent dots", ErrInvalidBucketName, name)
	}
	if net.ParseIP(name) != nil {
		return fmt.Errorf("%w: %q is formatted as an IP address", ErrInvalidBucketName, name)
	}
	return nil
}

// ValidateKey checks that an object key is valid UTF-8 of 1 to 1024 bytes.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return fmt.Errorf("%w: length must be between 1 and %d bytes", ErrInvalidKey, maxKeyLength)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidKey)
	}
	return nil
}
