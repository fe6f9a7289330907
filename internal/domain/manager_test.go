package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveManager(t *testing.T) {
	tests := []struct {
		name        string
		itemLevel   string
		bundleLevel string
		want        string
	}{
		{"item wins over bundle", "Anna", "Boris", "Anna"},
		{"bundle fills item gap", "", "Boris", "Boris"},
		{"unset item falls through", ManagerUnset, "Boris", "Boris"},
		{"whitespace is not a name", "   ", "Boris", "Boris"},
		{"nothing assigned", "", "", ManagerUnset},
		{"both unset", ManagerUnset, ManagerUnset, ManagerUnset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveManager(tt.itemLevel, tt.bundleLevel))
		})
	}
}
