package dscl

import (
	"bufio"
	"strconv"
	"strings"
)

// parseListAttr parses `dscl . -list <path> <attr>` output: one record
// per line, name first, attribute values after. Records lacking the
// attribute are not listed by dscl and so never appear here.
func parseListAttr(output string) map[string]string {
	out := map[string]string{}
	s := bufio.NewScanner(strings.NewReader(output))
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		value := ""
		if len(fields) > 1 {
			value = strings.Join(fields[1:], " ")
		}
		out[fields[0]] = value
	}
	return out
}

// parseIntListAttr is parseListAttr for integer-valued attributes;
// unparsable rows are dropped.
func parseIntListAttr(output string) map[string]int {
	out := map[string]int{}
	for name, raw := range parseListAttr(output) {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		if n, err := strconv.Atoi(fields[0]); err == nil {
			out[name] = n
		}
	}
	return out
}

// parseReadAttr extracts the value of attr from `dscl . -read` output.
// Multi-valued attributes come back space separated.
func parseReadAttr(output, attr string) (string, bool) {
	s := bufio.NewScanner(strings.NewReader(output))
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, attr+":") {
			return strings.TrimSpace(strings.TrimPrefix(line, attr+":")), true
		}
	}
	return "", false
}

// parseMembers splits a GroupMembership value into member names.
func parseMembers(value string) []string {
	return strings.Fields(value)
}

// recordNotFound recognises the dscl error for a missing record.
func recordNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "eDSRecordNotFound")
}
