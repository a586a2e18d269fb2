package bookdb

import "strconv"

// ProtocolVersion is sent as the sspv parameter on every request.
const ProtocolVersion = "0.0.1"

// Command identifies one of the fixed bookDB operations.
type Command int

const (
	CmdTest Command = iota
	CmdRepositories
	CmdCounties
	CmdArchives
	CmdBookTypes
	CmdBooks
	CmdBookRefs
	CmdSCBBooks
	CmdSCBBookTypes
	CmdSCBArchive
)

var commandNames = [...]string{
	CmdTest:         "TestSSPV",
	CmdRepositories: "getRepositories",
	CmdCounties:     "getCounties",
	CmdArchives:     "getArchives",
	CmdBookTypes:    "getBookTypes",
	CmdBooks:        "getBooks",
	CmdBookRefs:     "getBookRefs",
	CmdSCBBooks:     "getSCBBooks",
	CmdSCBBookTypes: "getSCBBookTypes",
	CmdSCBArchive:   "getSCBArchive",
}

// String returns the wire name used in the do= parameter.
func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "Command(" + strconv.Itoa(int(c)) + ")"
	}
	return commandNames[c]
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	return c >= 0 && int(c) < len(commandNames)
}

// Param is a single key=value pair appended to the query string.
type Param struct {
	Key   string
	Value string
}

// Query is a command plus its parameters in the order they are sent.
// A Query is immutable once built.
type Query struct {
	cmd    Command
	params []Param
}

// NewQuery builds a Query. The params slice is copied.
func NewQuery(cmd Command, params ...Param) Query {
	q := Query{cmd: cmd}
	if len(params) > 0 {
		q.params = make([]Param, len(params))
		copy(q.params, params)
	}
	return q
}

// Command returns the query's command code.
func (q Query) Command() Command { return q.cmd }

// Params returns a copy of the query parameters.
func (q Query) Params() []Param {
	if len(q.params) == 0 {
		return nil
	}
	out := make([]Param, len(q.params))
	copy(out, q.params)
	return out
}

// Encode renders the query string without the leading base URL:
// ?do=<name>&sspv=<version>[&key=value]*. Values are sent verbatim.
func (q Query) Encode() string {
	s := "?do=" + q.cmd.String() + "&sspv=" + ProtocolVersion
	for _, p := range q.params {
		s += "&" + p.Key + "=" + p.Value
	}
	return s
}

func intParam(key string, v int) Param {
	return Param{Key: key, Value: strconv.Itoa(v)}
}
