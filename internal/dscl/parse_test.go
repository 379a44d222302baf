package dscl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListAttr(t *testing.T) {
	out := parseListAttr("alice  1\nbob    1\n_mbsetupuser 1\n")
	assert.Equal(t, map[string]string{"alice": "1", "bob": "1", "_mbsetupuser": "1"}, out)
}

func TestParseListAttr_Empty(t *testing.T) {
	assert.Empty(t, parseListAttr(""))
	assert.Empty(t, parseListAttr("\n\n"))
}

func TestParseIntListAttr(t *testing.T) {
	out := parseIntListAttr("alice  501\nbob    502\nweird  nope\n")
	assert.Equal(t, map[string]int{"alice": 501, "bob": 502}, out)
}

func TestParseReadAttr(t *testing.T) {
	out := "AppleMetaNodeLocation: /Local/Default\nNFSHomeDirectory: /Users/alice\n"
	v, ok := parseReadAttr(out, "NFSHomeDirectory")
	assert.True(t, ok)
	assert.Equal(t, "/Users/alice", v)

	_, ok = parseReadAttr(out, "UserShell")
	assert.False(t, ok)
}

func TestParseMembers(t *testing.T) {
	v, ok := parseReadAttr("GroupMembership: root alice bob\n", "GroupMembership")
	assert.True(t, ok)
	assert.Equal(t, []string{"root", "alice", "bob"}, parseMembers(v))
	assert.Empty(t, parseMembers(""))
}

func TestRecordNotFound(t *testing.T) {
	assert.True(t, recordNotFound(errors.New("<dscl_cmd> DS Error: -14136 (eDSRecordNotFound)")))
	assert.False(t, recordNotFound(errors.New("permission denied")))
	assert.False(t, recordNotFound(nil))
}
