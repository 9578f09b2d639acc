package compliance

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// permissive international phone shape
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{5,19}$`)
	dateLayout = "2006-01-02"
)

// FormValidationError reports every failed field rule of a form-submit attempt.
// Field errors map field names to messages; file errors are kept separate so
// the caller can surface them distinctly.
type FormValidationError struct {
	Fields map[string]string `json:"field_errors"`
	Files  []string          `json:"file_errors,omitempty"`
}

func (e *FormValidationError) Error() string { return "form validation failed" }

func (e *FormValidationError) HasErrors() bool {
	return len(e.Fields) > 0 || len(e.Files) > 0
}

// ValidateField checks a single non-file field value against its definition and
// returns a human-readable message, or "" when the value passes. Rules apply in
// order; the first failure wins. It is a pure function.
func ValidateField(fld FormField, value interface{}) string {
	if isEmpty(value) {
		if fld.Required {
			return fld.Label + " is required"
		}
		return ""
	}

	str := strings.TrimSpace(stringValue(value))
	if fld.Validation != nil {
		if fld.Validation.MinLength != nil && len(str) < *fld.Validation.MinLength {
			return fmt.Sprintf("%s must be at least %d characters", fld.Label, *fld.Validation.MinLength)
		}
		if fld.Validation.MaxLength != nil && len(str) > *fld.Validation.MaxLength {
			return fmt.Sprintf("%s must be at most %d characters", fld.Label, *fld.Validation.MaxLength)
		}
		if fld.Validation.Pattern != "" {
			re, err := regexp.Compile(fld.Validation.Pattern)
			if err != nil || !re.MatchString(str) {
				return fld.Label + " has an invalid format"
			}
		}
	}

	switch fld.Type {
	case FieldText, FieldTextarea, FieldSelect, FieldRadio, FieldCheckbox:
		return ""
	case FieldEmail:
		if !emailRegex.MatchString(str) {
			return fld.Label + " must be a valid email address"
		}
	case FieldPhone:
		if !phoneRegex.MatchString(str) {
			return fld.Label + " must be a valid phone number"
		}
	case FieldDate:
		if _, err := parseDate(str); err != nil {
			return fld.Label + " must be a valid date (YYYY-MM-DD)"
		}
	case FieldNumber:
		num, err := numericValue(value)
		if err != nil {
			return fld.Label + " must be a number"
		}
		if fld.Validation != nil {
			if fld.Validation.MinValue != nil && num < *fld.Validation.MinValue {
				return fmt.Sprintf("%s must be at least %v", fld.Label, *fld.Validation.MinValue)
			}
			if fld.Validation.MaxValue != nil && num > *fld.Validation.MaxValue {
				return fmt.Sprintf("%s must be at most %v", fld.Label, *fld.Validation.MaxValue)
			}
		}
	case FieldFile:
		// file fields are validated against uploads, not form data
		return ""
	}
	return ""
}

// ValidateFiles checks every upload attached to a file field against the field's
// size and type constraints. Each failing file contributes one message.
func ValidateFiles(fld FormField, uploads []FileUpload) []string {
	var errs []string
	maxSize := fld.MaxFileSize()
	for _, up := range uploads {
		if up.Size > maxSize {
			errs = append(errs, fmt.Sprintf("%s: file %q exceeds the maximum size of %d bytes", fld.Label, up.Filename, maxSize))
			continue
		}
		if fld.Validation != nil && len(fld.Validation.AllowedFileTypes) > 0 {
			if !fileTypeAllowed(up, fld.Validation.AllowedFileTypes) {
				errs = append(errs, fmt.Sprintf("%s: file %q has a disallowed type (allowed: %s)",
					fld.Label, up.Filename, strings.Join(fld.Validation.AllowedFileTypes, ", ")))
			}
		}
	}
	return errs
}

// ValidateForm runs the field validator over every field of the form, in order.
// It returns nil when everything passes. It never mutates its inputs.
func ValidateForm(form *Form, data FormData, uploads []FileUpload) *FormValidationError {
	verr := &FormValidationError{Fields: make(map[string]string)}

	uploadsByField := make(map[string][]FileUpload, len(uploads))
	for _, up := range uploads {
		uploadsByField[up.FieldName] = append(uploadsByField[up.FieldName], up)
	}

	for _, fld := range form.SortedFields() {
		if fld.Type == FieldFile {
			ups := uploadsByField[fld.Name]
			if len(ups) == 0 {
				if fld.Required && isEmpty(data[fld.Name]) {
					verr.Fields[fld.Name] = fld.Label + " is required"
				}
				continue
			}
			verr.Files = append(verr.Files, ValidateFiles(fld, ups)...)
			continue
		}
		if msg := ValidateField(fld, data[fld.Name]); msg != "" {
			verr.Fields[fld.Name] = msg
		}
	}

	if !verr.HasErrors() {
		return nil
	}
	return verr
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			parts = append(parts, stringValue(el))
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", value)
}

func numericValue(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("not a number: %v", value)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// fileTypeAllowed matches the upload's MIME type or filename extension against
// the allowed list. Entries containing "/" compare as MIME types ("image/*"
// matches any image subtype); anything else compares as an extension.
func fileTypeAllowed(up FileUpload, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), ".")
	mime := strings.ToLower(up.ContentType)

	for _, t := range allowed {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(t, "/") {
			if strings.HasSuffix(t, "/*") {
				if strings.HasPrefix(mime, strings.TrimSuffix(t, "*")) {
					return true
				}
			} else if mime == t {
				return true
			}
			continue
		}
		if ext == strings.TrimPrefix(t, ".") {
			return true
		}
	}
	return false
}
