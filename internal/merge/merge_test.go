package merge

import (
	"testing"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMergePrefersFirstNonEmpty(t *testing.T) {
	a := models.ExtractedFields{Name: "Ann", Company: "ACME", FullText: "front"}
	b := models.ExtractedFields{Name: "Bob", Email: "a@b.com", Website: "acme.io", FullText: "back"}

	got := Merge(a, b)

	expected := models.MergedRecord{Name: "Ann", Company: "ACME", Email: "a@b.com", Website: "acme.io"}
	assert.Equal(t, expected, got)
}

func TestMergeIsNotSymmetric(t *testing.T) {
	a := models.ExtractedFields{Name: "X"}
	b := models.ExtractedFields{Name: "Y"}

	assert.Equal(t, "X", Merge(a, b).Name)
	assert.Equal(t, "Y", Merge(b, a).Name)
}

func TestMergeFieldsAreIndependent(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"name", "name"},
		{"job title", "jobTitle"},
		{"company", "company"},
		{"email", "email"},
		{"phone", "phone"},
		{"website", "website"},
		{"address", "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// every field filled on b, only the one under test on a
			b := models.ExtractedFields{
				Name: "b", JobTitle: "b", Company: "b", Email: "b",
				Phone: "b", Website: "b", Address: "b",
			}
			var am models.MergedRecord
			am.Set(tt.field, "a")
			a := models.ExtractedFields{
				Name: am.Name, JobTitle: am.JobTitle, Company: am.Company, Email: am.Email,
				Phone: am.Phone, Website: am.Website, Address: am.Address,
			}

			got := Merge(a, b)

			for _, f := range models.MergeFields {
				want := "b"
				if f == tt.field {
					want = "a"
				}
				if got.Get(f) != want {
					t.Errorf("Expected %s=%q, got %q", f, want, got.Get(f))
				}
			}
		})
	}
}

func TestMergeNormalizesPhone(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected string
	}{
		{"runs of spaces", "123 456  789", "", "123456789"},
		{"tabs and newlines", "", "+1\t555\n0100", "+15550100"},
		{"already compact", "5550100", "999", "5550100"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(models.ExtractedFields{Phone: tt.a}, models.ExtractedFields{Phone: tt.b})
			assert.Equal(t, tt.expected, got.Phone)
		})
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Equal(t, models.MergedRecord{}, Merge(models.ExtractedFields{}, models.ExtractedFields{}))
}
