package pushcut

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplateReplacesVars(t *testing.T) {
	out := ParseTemplate("New lead {first_name} from {utm_source}", map[string]string{
		"first_name": "Ana",
		"utm_source": "facebook",
	})
	assert.Equal(t, "New lead Ana from facebook", out)
}

func TestParseTemplateBuiltinDateAndTime(t *testing.T) {
	now := time.Now()
	out := ParseTemplate("{date} {time}", nil)
	assert.Contains(t, out, now.Format("02/01/2006"))
	// Not asserting the exact minute, the clock may tick mid-test.
	assert.NotContains(t, out, "{time}")
}

func TestParseTemplateLeavesUnknownTokens(t *testing.T) {
	out := ParseTemplate("Hello {nobody}", map[string]string{"first_name": "Ana"})
	assert.Equal(t, "Hello {nobody}", out)
}

func TestParseTemplateEmptyTemplate(t *testing.T) {
	assert.Equal(t, "", ParseTemplate("", map[string]string{"x": "y"}))
}
