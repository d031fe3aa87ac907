package ir

import (
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// PostgreSQL reserved words that need quoting
var reservedWords = map[string]bool{
	"user":   true,
	"order":  true,
	"group":  true,
	"select": true,
	"from":   true,
	"where":  true,
	"table":  true,
	"check":  true,
	"to":     true,
	"grant":  true,
}

// NeedsQuoting checks if an identifier needs to be quoted
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}

	if reservedWords[strings.ToLower(identifier)] {
		return true
	}

	// PostgreSQL folds unquoted identifiers to lowercase
	for _, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
	}

	for i, r := range identifier {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}

	return false
}

// QuoteIdentifier quotes an identifier if needed
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return pq.QuoteIdentifier(identifier)
	}
	return identifier
}

// QuoteLiteral quotes a string literal for embedding in SQL
func QuoteLiteral(literal string) string {
	return pq.QuoteLiteral(literal)
}

// QualifyName returns the quoted entity name, schema-qualified only when the
// entity lives outside the target schema
func QualifyName(entitySchema, entityName, targetSchema string) string {
	quotedName := QuoteIdentifier(entityName)

	if entitySchema == targetSchema || entitySchema == "" {
		return quotedName
	}

	return QuoteIdentifier(entitySchema) + "." + quotedName
}
