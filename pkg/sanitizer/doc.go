// Package sanitizer normalizes user-entered values before they are validated
// and written to the document tree.
//
// All functions are idempotent and never fail: unusable input comes back as
// an empty string or an empty slice.
//
// Normalization includes:
//   - Phone numbers: E.164 format (+[country][number])
//   - Names and free text: collapse whitespace, trim
//   - Emails: trim, lowercase
//   - Clock times: zero-padded HH:MM
//   - ID lists: trimmed, empty values and duplicates removed, order kept
package sanitizer
