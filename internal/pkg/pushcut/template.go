package pushcut

import (
	"strings"
	"time"
)

// ParseTemplate replaces {key} tokens with the given values. {date} and
// {time} are always available. Tokens without a value are left in place, the
// tenant sees exactly what their template produced.
func ParseTemplate(template string, vars map[string]string) string {
	now := time.Now()

	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	result = strings.ReplaceAll(result, "{date}", now.Format("02/01/2006"))
	result = strings.ReplaceAll(result, "{time}", now.Format("15:04"))

	return result
}
