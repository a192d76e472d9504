package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDictionary(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		minWords int
		wantErr  bool
	}{
		{"loaded", 47, 1, false},
		{"empty", 0, 1, true},
		{"exact minimum", 100, 100, false},
		{"below minimum", 99, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDictionary(HealthResult{Status: "ok", DictionaryWords: tt.words}, tt.minWords)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
