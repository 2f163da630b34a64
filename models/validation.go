package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits, counted in runes.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	PasswordMinLen = 6
	PostMaxLen     = 1000
	CommentMaxLen  = 500
	BioMaxLen      = 160
	// MaxTagsPerPost and TagMaxLen apply after NormalizeTags.
	MaxTagsPerPost = 20
	TagMaxLen      = 50
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	trailingDigits  = regexp.MustCompile(`\d{5,}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername returns the message of the first rule name breaks, or "" when it is acceptable.
func ValidateUsername(name string) string {
	n := utf8.RuneCountInString(name)
	if n < UsernameMinLen || n > UsernameMaxLen {
		return "Username must be between 3 and 30 characters"
	}
	if !usernamePattern.MatchString(name) {
		return "Username must start with a letter and can only contain letters, numbers, and underscores"
	}
	if trailingDigits.MatchString(name) {
		return "Username cannot end with more than 4 consecutive digits"
	}
	if n > 5 && countLetters(name) < 2 {
		return "Username must contain at least 2 letters"
	}
	return ""
}

// ValidUsername is ValidateUsername as a predicate.
func ValidUsername(name string) bool {
	return ValidateUsername(name) == ""
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			n++
		}
	}
	return n
}

// ValidatePassword enforces length and character classes.
func ValidatePassword(pw string) string {
	if utf8.RuneCountInString(pw) < PasswordMinLen {
		return "Password must be at least 6 characters long"
	}
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return "Password must contain at least one lowercase letter, one uppercase letter, and one number"
	}
	return ""
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the shape of an already normalized address.
func ValidateEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return "Please provide a valid email"
	}
	return ""
}

// ValidatePostContent expects sanitized content.
func ValidatePostContent(content string) string {
	n := utf8.RuneCountInString(content)
	if n < 1 || n > PostMaxLen {
		return "Post content must be between 1 and 1000 characters"
	}
	return ""
}

// ValidateCommentContent expects sanitized content.
func ValidateCommentContent(content string) string {
	n := utf8.RuneCountInString(content)
	if n < 1 || n > CommentMaxLen {
		return "Comment must be between 1 and 500 characters"
	}
	return ""
}

func ValidateBio(bio string) string {
	if utf8.RuneCountInString(bio) > BioMaxLen {
		return "Bio cannot exceed 160 characters"
	}
	return ""
}

// NormalizeTags trims tags, drops empty ones and duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ValidateTags expects normalized tags.
func ValidateTags(tags []string) string {
	if len(tags) > MaxTagsPerPost {
		return "A post can have at most 20 tags"
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > TagMaxLen {
			return "Each tag must be at most 50 characters"
		}
	}
	return ""
}
