package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "separate value", args: []string{"derive", "Packages", "--config", "other.yaml"}, want: "other.yaml"},
		{name: "equals form", args: []string{"--config=conf/scfs.yaml", "derive", "Packages"}, want: "conf/scfs.yaml"},
		{name: "absent", args: []string{"derive", "Packages"}, want: ""},
		{name: "no args", args: nil, want: ""},
		{name: "dangling flag", args: []string{"derive", "--config"}, want: ""},
		{name: "after terminator", args: []string{"derive", "--", "--config", "x.yaml"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, configPathFromArgs(tt.args))
		})
	}
}
