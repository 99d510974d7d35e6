package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickproject/sniwatch/internal/aggregator"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		include  []string
		exclude  []string
		hostname string
		want     bool
	}{
		{"no rules", nil, nil, "example.com", true},
		{"wildcard subdomain", []string{"*.google.com"}, nil, "mail.google.com", true},
		{"wildcard apex", []string{"*.google.com"}, nil, "google.com", true},
		{"wildcard miss", []string{"*.google.com"}, nil, "google.com.evil.net", false},
		{"glob", []string{"cdn-??.example.net"}, nil, "cdn-01.example.net", true},
		{"case insensitive", []string{" *.Example.COM "}, nil, "WWW.example.com", true},
		{"exclude wins", []string{"*.example.com"}, []string{"ads.example.com"}, "ads.example.com", false},
		{"exclude only", nil, []string{"*.tracker.io"}, "api.example.com", true},
		{"bad pattern", []string{"[a-"}, nil, "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.include, tt.exclude).Match(tt.hostname))
		})
	}
}

func TestApply(t *testing.T) {
	groups := []aggregator.Group{
		{Hostname: "video.example.com", Received: 3},
		{Hostname: "ads.example.com", Received: 2},
		{Hostname: "other.net", Received: 1},
	}

	kept := New([]string{"*.example.com"}, []string{"ads.*"}).Apply(groups)
	assert.Equal(t, []aggregator.Group{groups[0]}, kept)
	assert.Len(t, groups, 3, "input is not modified")

	var none *Filter
	assert.True(t, none.IsEmpty())
	assert.Equal(t, groups, none.Apply(groups))
	assert.True(t, New([]string{" "}, nil).IsEmpty())
}
