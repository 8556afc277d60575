package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisallowedMatchesWildcardUserAgentGroup(t *testing.T) {
	body := "User-agent: *\nDisallow: /private\nDisallow: /admin\n"
	assert.True(t, disallowed(strings.NewReader(body), "/private/notes"))
	assert.True(t, disallowed(strings.NewReader(body), "/admin"))
	assert.False(t, disallowed(strings.NewReader(body), "/public"))
}

func TestDisallowedIgnoresOtherUserAgentGroups(t *testing.T) {
	body := "User-agent: GoogleBot\nDisallow: /\n\nUser-agent: *\nDisallow: /only-this\n"
	assert.False(t, disallowed(strings.NewReader(body), "/everything-else"))
	assert.True(t, disallowed(strings.NewReader(body), "/only-this"))
}

func TestDisallowedEmptyBodyAllowsAll(t *testing.T) {
	assert.False(t, disallowed(strings.NewReader(""), "/anything"))
}
