package app

import "strings"

// multiValueFlags take every following word up to the next flag, so
// "-l Ops Controls" names two logbooks.
var multiValueFlags = map[string]string{
	"-l": "logbooks", "--logbooks": "logbooks",
	"-t": "tags", "--tags": "tags",
	"-a": "attach", "--attach": "attach",
}

// boolShorthands may lead a cluster such as -ql.
const boolShorthands = "vqsgh"

// normalizeArgs rewrites each multi-value flag occurrence into repeated
// --name=value arguments that pflag understands. A flag given with no
// values becomes --name= so that it still counts as set.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		name, ok := multiValueFlags[arg]
		if !ok {
			var cluster string
			cluster, name, ok = splitCluster(arg)
			if !ok {
				out = append(out, arg)
				continue
			}
			out = append(out, cluster)
		}
		n := 0
		for i+1 < len(args) && !isFlag(args[i+1]) {
			i++
			out = append(out, "--"+name+"="+args[i])
			n++
		}
		if n == 0 {
			out = append(out, "--"+name+"=")
		}
	}
	return out
}

// splitCluster splits "-ql" into "-q" and logbooks. It only matches
// boolean shorthands followed by one multi-value shorthand; "-lOps" is a
// flag with an attached value and is left alone.
func splitCluster(arg string) (string, string, bool) {
	if len(arg) < 3 || arg[0] != '-' || arg[1] == '-' {
		return "", "", false
	}
	body := arg[1:]
	last := len(body) - 1
	for i := 0; i < last; i++ {
		if !strings.ContainsRune(boolShorthands, rune(body[i])) {
			return "", "", false
		}
	}
	name, ok := multiValueFlags["-"+body[last:]]
	if !ok {
		return "", "", false
	}
	return "-" + body[:last], name, true
}

func isFlag(arg string) bool {
	return len(arg) > 1 && strings.HasPrefix(arg, "-")
}

// cleanValues drops the empty placeholders left by normalizeArgs.
func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
