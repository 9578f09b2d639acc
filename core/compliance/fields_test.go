package compliance

import (
	"strings"
	"testing"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestValidateField(t *testing.T) {
	tests := []struct {
		name  string
		fld   FormField
		value interface{}
		want  string // "" means pass
	}{
		{
			name:  "required missing",
			fld:   FormField{Name: "full_name", Label: "Full Name", Type: FieldText, Required: true},
			value: nil,
			want:  "Full Name is required",
		},
		{
			name:  "required whitespace only",
			fld:   FormField{Name: "full_name", Label: "Full Name", Type: FieldText, Required: true},
			value: "   ",
			want:  "Full Name is required",
		},
		{
			name:  "optional missing",
			fld:   FormField{Name: "bio", Label: "Bio", Type: FieldTextarea},
			value: nil,
		},
		{
			name:  "optional empty checkbox",
			fld:   FormField{Name: "langs", Label: "Languages", Type: FieldCheckbox, Options: []string{"en", "fr"}},
			value: []string{},
		},
		{
			name:  "min length fails",
			fld:   FormField{Name: "code", Label: "Code", Type: FieldText, Validation: &FieldValidation{MinLength: intPtr(4)}},
			value: "abc",
			want:  "Code must be at least 4 characters",
		},
		{
			name:  "max length fails",
			fld:   FormField{Name: "code", Label: "Code", Type: FieldText, Validation: &FieldValidation{MaxLength: intPtr(4)}},
			value: "abcde",
			want:  "Code must be at most 4 characters",
		},
		{
			name:  "length in range",
			fld:   FormField{Name: "code", Label: "Code", Type: FieldText, Validation: &FieldValidation{MinLength: intPtr(2), MaxLength: intPtr(4)}},
			value: "abc",
		},
		{
			name:  "pattern fails",
			fld:   FormField{Name: "ref", Label: "Reference", Type: FieldText, Validation: &FieldValidation{Pattern: `^REF-\d+$`}},
			value: "REF-",
			want:  "Reference has an invalid format",
		},
		{
			name:  "pattern passes",
			fld:   FormField{Name: "ref", Label: "Reference", Type: FieldText, Validation: &FieldValidation{Pattern: `^REF-\d+$`}},
			value: "REF-42",
		},
		{
			name:  "invalid pattern rejects value",
			fld:   FormField{Name: "ref", Label: "Reference", Type: FieldText, Validation: &FieldValidation{Pattern: `([`}},
			value: "anything",
			want:  "Reference has an invalid format",
		},
		{
			name:  "email valid",
			fld:   FormField{Name: "email", Label: "Email", Type: FieldEmail},
			value: "jane@school.ie",
		},
		{
			name:  "email invalid",
			fld:   FormField{Name: "email", Label: "Email", Type: FieldEmail},
			value: "jane@school",
			want:  "Email must be a valid email address",
		},
		{
			name:  "phone valid international",
			fld:   FormField{Name: "phone", Label: "Phone", Type: FieldPhone},
			value: "+353 86 123 4567",
		},
		{
			name:  "phone invalid",
			fld:   FormField{Name: "phone", Label: "Phone", Type: FieldPhone},
			value: "not-a-phone",
			want:  "Phone must be a valid phone number",
		},
		{
			name:  "date valid",
			fld:   FormField{Name: "dob", Label: "Date of Birth", Type: FieldDate},
			value: "2010-09-01",
		},
		{
			name:  "date invalid",
			fld:   FormField{Name: "dob", Label: "Date of Birth", Type: FieldDate},
			value: "01/09/2010",
			want:  "Date of Birth must be a valid date (YYYY-MM-DD)",
		},
		{
			name:  "number from json float",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber},
			value: float64(12),
		},
		{
			name:  "number from string",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber},
			value: "12",
		},
		{
			name:  "number invalid",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber},
			value: "twelve",
			want:  "Age must be a number",
		},
		{
			name:  "number below min",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber, Validation: &FieldValidation{MinValue: floatPtr(4)}},
			value: float64(3),
			want:  "Age must be at least 4",
		},
		{
			name:  "number above max",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber, Validation: &FieldValidation{MaxValue: floatPtr(18)}},
			value: float64(19),
			want:  "Age must be at most 18",
		},
		{
			name:  "number at bounds",
			fld:   FormField{Name: "age", Label: "Age", Type: FieldNumber, Validation: &FieldValidation{MinValue: floatPtr(4), MaxValue: floatPtr(18)}},
			value: float64(18),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateField(tt.fld, tt.value); got != tt.want {
				t.Errorf("ValidateField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFiles(t *testing.T) {
	fld := FormField{
		Name: "cert", Label: "Certificate", Type: FieldFile, Required: true,
		Validation: &FieldValidation{AllowedFileTypes: []string{"pdf", "image/*"}},
	}

	tests := []struct {
		name     string
		uploads  []FileUpload
		wantErrs int
	}{
		{
			name:    "at default size limit",
			uploads: []FileUpload{{FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf", Size: DefaultMaxFileSize}},
		},
		{
			name:     "one byte over limit",
			uploads:  []FileUpload{{FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf", Size: DefaultMaxFileSize + 1}},
			wantErrs: 1,
		},
		{
			name:    "extension allowed",
			uploads: []FileUpload{{FieldName: "cert", Filename: "cert.PDF", ContentType: "application/octet-stream", Size: 512}},
		},
		{
			name:    "mime wildcard allowed",
			uploads: []FileUpload{{FieldName: "cert", Filename: "scan.png", ContentType: "image/png", Size: 512}},
		},
		{
			name:     "type disallowed",
			uploads:  []FileUpload{{FieldName: "cert", Filename: "cert.exe", ContentType: "application/x-msdownload", Size: 512}},
			wantErrs: 1,
		},
		{
			name: "mixed pass and fail",
			uploads: []FileUpload{
				{FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf", Size: 512},
				{FieldName: "cert", Filename: "huge.pdf", ContentType: "application/pdf", Size: 10 << 20},
			},
			wantErrs: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := ValidateFiles(fld, tt.uploads); len(errs) != tt.wantErrs {
				t.Errorf("ValidateFiles() errors = %v, want %d", errs, tt.wantErrs)
			}
		})
	}
}

func TestValidateFiles_customLimit(t *testing.T) {
	fld := FormField{
		Name: "photo", Label: "Photo", Type: FieldFile,
		Validation: &FieldValidation{MaxFileSize: 1024},
	}
	errs := ValidateFiles(fld, []FileUpload{{FieldName: "photo", Filename: "p.jpg", ContentType: "image/jpeg", Size: 2048}})
	if len(errs) != 1 || !strings.Contains(errs[0], "1024") {
		t.Errorf("ValidateFiles() = %v, want custom limit error", errs)
	}
}

func TestValidateForm(t *testing.T) {
	form := &Form{
		Title: "Garda Vetting",
		Fields: []FormField{
			{ID: "3", Name: "cert", Label: "Certificate", Type: FieldFile, Required: true, Order: 3},
			{ID: "1", Name: "full_name", Label: "Full Name", Type: FieldText, Required: true, Order: 1},
			{ID: "2", Name: "email", Label: "Email", Type: FieldEmail, Required: true, Order: 2},
		},
	}

	t.Run("all valid", func(t *testing.T) {
		verr := ValidateForm(form, FormData{"full_name": "Jane Doe", "email": "jane@school.ie"},
			[]FileUpload{{FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf", Size: 512}})
		if verr != nil {
			t.Errorf("ValidateForm() = %v, want nil", verr)
		}
	})

	t.Run("collects every failure", func(t *testing.T) {
		verr := ValidateForm(form, FormData{"email": "nope"}, nil)
		if verr == nil {
			t.Fatal("ValidateForm() = nil, want errors")
		}
		if len(verr.Fields) != 3 {
			t.Errorf("ValidateForm() fields = %v, want 3 errors", verr.Fields)
		}
		if verr.Fields["full_name"] != "Full Name is required" {
			t.Errorf("full_name error = %q", verr.Fields["full_name"])
		}
		if verr.Fields["cert"] != "Certificate is required" {
			t.Errorf("cert error = %q", verr.Fields["cert"])
		}
	})

	t.Run("file errors kept separate", func(t *testing.T) {
		verr := ValidateForm(form, FormData{"full_name": "Jane Doe", "email": "jane@school.ie"},
			[]FileUpload{{FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf", Size: DefaultMaxFileSize + 1}})
		if verr == nil {
			t.Fatal("ValidateForm() = nil, want file error")
		}
		if len(verr.Fields) != 0 || len(verr.Files) != 1 {
			t.Errorf("ValidateForm() = fields %v files %v, want 1 file error", verr.Fields, verr.Files)
		}
	})

	t.Run("optional file field missing", func(t *testing.T) {
		optional := &Form{Fields: []FormField{{Name: "photo", Label: "Photo", Type: FieldFile}}}
		if verr := ValidateForm(optional, FormData{}, nil); verr != nil {
			t.Errorf("ValidateForm() = %v, want nil", verr)
		}
	})
}

func TestForm_SortedFields(t *testing.T) {
	form := &Form{Fields: []FormField{
		{Name: "c", Order: 2},
		{Name: "a", Order: 1},
		{Name: "b", Order: 1},
	}}
	got := form.SortedFields()
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("SortedFields()[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
	// original order untouched
	if form.Fields[0].Name != "c" {
		t.Error("SortedFields() mutated the form")
	}
}
