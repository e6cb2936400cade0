// Package validation evaluates a field's ordered rule list against its raw,
// unformatted value. Evaluation stops at the first failing rule, whose message
// is the only error surfaced for the field.
package validation
