package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authkit/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want environment.Environment
	}{
		{name: "production", raw: "production", want: environment.Production},
		{name: "prod short form", raw: "prod", want: environment.Production},
		{name: "staging", raw: "staging", want: environment.Staging},
		{name: "stage short form", raw: "stage", want: environment.Staging},
		{name: "development", raw: "development", want: environment.Development},
		{name: "empty falls back to development", raw: "", want: environment.Development},
		{name: "unknown falls back to development", raw: "qa", want: environment.Development},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, environment.Parse(tt.raw))
		})
	}
}

func TestEnvironmentChecks(t *testing.T) {
	t.Parallel()

	assert.True(t, environment.Production.IsProduction())
	assert.False(t, environment.Production.IsDevelopment())
	assert.True(t, environment.Development.IsDevelopment())
	assert.True(t, environment.Staging.IsStaging())
	assert.Equal(t, "production", environment.Production.String())
}
