package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    Filter
		wantErr bool
	}{
		{"", Filter{}, false},
		{"global", Filter{}, false},
		{"repository:linux.git", Filter{Kind: RepositoryFilter, Value: "linux.git"}, false},
		{"Company: Red Hat ", Filter{Kind: CompanyFilter, Value: "Red Hat"}, false},
		{"people:42", Filter{Kind: PeopleFilter, Value: "42"}, false},
		{"tracker:url", Filter{}, true},
		{"company", Filter{}, true},
		{"company:", Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFilter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterString(t *testing.T) {
	assert.Equal(t, "global", Filter{}.String())
	assert.True(t, Filter{}.IsGlobal())
	assert.Equal(t, "country:Spain", Filter{Kind: CountryFilter, Value: "Spain"}.String())
}

func TestParseDataSource(t *testing.T) {
	ds, err := ParseDataSource(" SCM ")
	require.NoError(t, err)
	assert.Equal(t, SCM, ds)

	_, err = ParseDataSource("svn")
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "red_hat", Slug("Red Hat"))
	assert.Equal(t, "https___bugs.example.org_", Slug("https://bugs.example.org/"))
	assert.Equal(t, "linux-2.6", Slug("linux-2.6"))
}
