package keyparse

import (
	"reflect"
	"testing"
)

func TestSplitKeyPoints(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"sentences",
			"Water boils at 100 degrees. Ice melts at zero.",
			[]string{"Water boils at 100 degrees", "Ice melts at zero"},
		},
		{
			"semicolons",
			"Respiration consumes oxygen; it releases carbon dioxide",
			[]string{"Respiration consumes oxygen", "it releases carbon dioxide"},
		},
		{
			"decimal points survive",
			"Pi is approximately 3.14 and e is 2.71",
			[]string{"Pi is approximately 3.14 and e is 2.71"},
		},
		{
			"separator at end of string",
			"A single complete sentence.",
			[]string{"A single complete sentence"},
		},
		{
			"empty segments dropped",
			"First point. . Second point.",
			[]string{"First point", "Second point"},
		},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitKeyPoints(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitKeyPoints(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
