package bookdb

import "testing"

func TestQuery_EncodeAndImmutability(t *testing.T) {
	params := []Param{{Key: "cid", Value: "3"}, {Key: "aid", Value: "12"}}
	q := NewQuery(CmdArchives, params...)
	params[0].Value = "99"

	if got, want := q.Encode(), "?do=getArchives&sspv=0.0.1&cid=3&aid=12"; got != want {
		t.Fatalf("Encode = %q, want %q", got, want)
	}

	got := q.Params()
	got[1].Value = "changed"
	if q.Params()[1].Value != "12" {
		t.Fatalf("Params returned shared slice")
	}
}

func TestCommand_Names(t *testing.T) {
	want := map[Command]string{
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
	for cmd, name := range want {
		if cmd.String() != name || !cmd.Valid() {
			t.Fatalf("Command(%d) = %q, want %q", cmd, cmd.String(), name)
		}
	}
	if Command(42).Valid() {
		t.Fatalf("Command(42) reported valid")
	}
}

func TestClient_BuildURL(t *testing.T) {
	c := NewClient(Options{Credentials: Credentials{URL: "https://bookdb.example/api.php"}})
	got := c.BuildURL(NewQuery(CmdBookRefs, Param{Key: "bid", Value: "77"}))
	if want := "https://bookdb.example/api.php?do=getBookRefs&sspv=0.0.1&bid=77"; got != want {
		t.Fatalf("BuildURL = %q, want %q", got, want)
	}
}

func TestCredentials_Configured(t *testing.T) {
	cases := []struct {
		creds Credentials
		want  bool
	}{
		{Credentials{"http://x", "u", "p"}, true},
		{Credentials{" ", "u", "p"}, false},
		{Credentials{"http://x", "", "p"}, false},
		{Credentials{"http://x", "u", "\t"}, false},
		{Credentials{}, false},
	}
	for _, tc := range cases {
		if got := tc.creds.Configured(); got != tc.want {
			t.Fatalf("Configured(%+v) = %v, want %v", tc.creds, got, tc.want)
		}
	}
}

func TestCredentials_AuthHeader(t *testing.T) {
	cases := []struct {
		user, pass string
		want       string
	}{
		{"anna", "secret", "Basic YW5uYTpzZWNyZXQ="},
		{"", "secret", ""},
		{"anna", "  ", ""},
		{"a", "p", "Basic YTpw"},
	}
	for _, tc := range cases {
		got := Credentials{Username: tc.user, Password: tc.pass}.AuthHeader()
		if got != tc.want {
			t.Fatalf("AuthHeader(%q, %q) = %q, want %q", tc.user, tc.pass, got, tc.want)
		}
	}
}

func TestBookTypes_UnmarshalKeepsOrder(t *testing.T) {
	var types BookTypes
	if err := types.UnmarshalJSON([]byte(`{"10":"Husförhör","2":"Födde","7":8}`)); err != nil {
		t.Fatalf("UnmarshalJSON returned error: %v", err)
	}
	if len(types) != 3 || types[0].ID != "10" || types[1].ID != "2" || types[2].Name != "8" {
		t.Fatalf("BookTypes = %+v", types)
	}
	if err := types.UnmarshalJSON([]byte(`["a"]`)); err == nil {
		t.Fatalf("UnmarshalJSON accepted an array")
	}
}
