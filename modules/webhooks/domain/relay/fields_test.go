package relay

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_DropsUnknownKeys(t *testing.T) {
	in, err := url.ParseQuery("relayer=5&bogus=1&phone=%2B250788123123")
	require.NoError(t, err)

	out := Filter(in)

	assert.Equal(t, []string{"5"}, out["relayer"])
	assert.Equal(t, []string{"+250788123123"}, out["phone"])
	assert.NotContains(t, out, "bogus")
	assert.Len(t, out, 2)
}

func TestFilter_KeepsRepeatedValues(t *testing.T) {
	in := url.Values{
		"sms":    []string{"1", "2", "3"},
		"secret": []string{"x"},
	}

	out := Filter(in)

	assert.Equal(t, []string{"1", "2", "3"}, out["sms"])
	assert.NotContains(t, out, "secret")
}

func TestFilter_KeepsEmptyValues(t *testing.T) {
	in := url.Values{"text": []string{""}}

	out := Filter(in)

	require.Contains(t, out, "text")
	assert.Equal(t, []string{""}, out["text"])
}

func TestFilter_EmptyInput(t *testing.T) {
	assert.Empty(t, Filter(url.Values{}))
	assert.Empty(t, Filter(nil))
}

func TestAllowedFields_Stable(t *testing.T) {
	fields := AllowedFields()
	require.Len(t, fields, 20)

	for _, f := range fields {
		assert.True(t, Allowed(f), "field %q", f)
	}

	// Returned slice is a copy, mutating it must not poison the filter.
	fields[0] = "injected"
	assert.False(t, Allowed("injected"))
	assert.True(t, Allowed("relayer"))
}

func TestCatalog_FieldsMatchAllowList(t *testing.T) {
	// The sms catalog entries document status and direction although the
	// relay has never forwarded them. That mismatch is long-standing
	// upstream behavior; this test pins it so any further drift between
	// catalog and allow-list is caught.
	knownUndocumented := map[string]bool{
		"status":    true,
		"direction": true,
	}

	for _, endpoint := range Catalog() {
		for _, field := range endpoint.Fields {
			if knownUndocumented[field.Name] {
				assert.False(t, Allowed(field.Name),
					"field %q of %q is pinned as not forwarded", field.Name, endpoint.Event)
				continue
			}
			assert.True(t, Allowed(field.Name),
				"catalog field %q of %q must be on the allow-list", field.Name, endpoint.Event)
		}
	}
}
