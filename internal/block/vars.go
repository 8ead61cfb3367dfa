package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/weave/pkg/api"
)

// BacktickEscape stands in for a literal triple backtick, which block
// values cannot otherwise contain
const BacktickEscape = "<DUST_TRIPLE_BACKTICKS>"

var variablePattern = regexp.MustCompile(
	`\$\{([A-Za-z0-9_]+)((?:\.[A-Za-z0-9_\-]+)*)\}`,
)

var ErrVariableNotFound = errors.New("variable not found")

// RestoreBackticks replaces the backtick escape with literal backticks
func RestoreBackticks(s string) string {
	return strings.ReplaceAll(s, BacktickEscape, "```")
}

// ReplaceVariables substitutes `${BLOCK.path}` references with values from
// the results of earlier blocks. Strings are inserted as is, any other value
// as compact JSON
func ReplaceVariables(s string, state api.Args) (string, error) {
	if !variablePattern.MatchString(s) {
		return s, nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrMarshalArgs, err)
	}

	var missing error
	res := variablePattern.ReplaceAllStringFunc(s, func(m string) string {
		if missing != nil {
			return m
		}
		parts := variablePattern.FindStringSubmatch(m)
		path := parts[1] + parts[2]
		r := gjson.GetBytes(data, path)
		if !r.Exists() {
			missing = fmt.Errorf("%w: `%s`", ErrVariableNotFound, m)
			return m
		}
		if r.Type == gjson.String {
			return r.String()
		}
		return r.Raw
	})
	if missing != nil {
		return "", missing
	}
	return res, nil
}
