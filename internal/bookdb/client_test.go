package bookdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dis-maja/swesrc/internal/version"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient(Options{
		Credentials: Credentials{URL: server.URL, Username: "anna", Password: "secret"},
		Timeout:     2 * time.Second,
	})
	return c, server
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestQuery_TestCommandOK(t *testing.T) {
	var gotQuery, gotAuth, gotAccept, gotUA string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	})

	res, err := c.Query(testContext(t), NewQuery(CmdTest))
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res.Code != 0 || res.Status != "OK" {
		t.Fatalf("Query = (%q, %d), want (OK, 0)", res.Status, res.Code)
	}
	if gotQuery != "do=TestSSPV&sspv=0.0.1" {
		t.Fatalf("query string = %q", gotQuery)
	}
	want := Credentials{Username: "anna", Password: "secret"}.AuthHeader()
	if gotAuth != want {
		t.Fatalf("Authorization = %q, want %q", gotAuth, want)
	}
	if gotAccept != "application/json" {
		t.Fatalf("Accept = %q, want application/json", gotAccept)
	}
	if gotUA != version.UserAgent() {
		t.Fatalf("User-Agent = %q, want %q", gotUA, version.UserAgent())
	}
}

func TestQuery_ParamsInSuppliedOrder(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	})

	q := NewQuery(CmdBooks, Param{Key: "zeta", Value: "1"}, Param{Key: "aid", Value: "7"})
	res, err := c.Query(testContext(t), q)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !res.OK() || res.Status != "" {
		t.Fatalf("Query = (%q, %d), want (\"\", 0)", res.Status, res.Code)
	}
	if want := "do=getBooks&sspv=0.0.1&zeta=1&aid=7"; gotQuery != want {
		t.Fatalf("query string = %q, want %q", gotQuery, want)
	}
}

func TestQuery_NonOKStatusField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Wrong protocol version"}`))
	})

	res, err := c.Query(testContext(t), NewQuery(CmdTest))
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res.Code != CodeFailure || res.Status != "Wrong protocol version" {
		t.Fatalf("Query = (%q, %d), want (Wrong protocol version, -1)", res.Status, res.Code)
	}
	if len(res.Body) != 0 {
		t.Fatalf("Body = %s, want empty on failure", res.Body)
	}
}

func TestQuery_HandledHTTPStatuses(t *testing.T) {
	cases := []struct {
		code   int
		status string
	}{
		{http.StatusUnauthorized, StatusAuthenticationRequired},
		{http.StatusNotFound, StatusUnknownPage},
		{http.StatusInternalServerError, "Internal Server Error"},
		{http.StatusServiceUnavailable, "Service Unavailable"},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		})
		res, err := c.Query(testContext(t), NewQuery(CmdTest))
		if err != nil {
			t.Fatalf("Query(%d) returned error: %v", tc.code, err)
		}
		if res.Code != tc.code || res.Status != tc.status {
			t.Fatalf("Query(%d) = (%q, %d), want (%q, %d)", tc.code, res.Status, res.Code, tc.status, tc.code)
		}
	}
}

func TestQuery_UnhandledHTTPStatusIsTransportError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	_, err := c.Query(testContext(t), NewQuery(CmdCounties))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Query error = %v, want *TransportError", err)
	}
	if terr.Code != http.StatusTeapot || terr.Command != CmdCounties {
		t.Fatalf("TransportError = %+v, want code 418 for getCounties", terr)
	}
}

func TestQuery_NetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Options{Credentials: Credentials{URL: url, Username: "a", Password: "b"}})
	_, err := c.Query(testContext(t), NewQuery(CmdTest))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Query error = %v, want *TransportError", err)
	}
	if terr.Err == nil {
		t.Fatalf("TransportError.Err = nil, want network error")
	}
}

func TestQuery_MalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	})

	_, err := c.Query(testContext(t), NewQuery(CmdTest))
	var merr *MalformedResponseError
	if !errors.As(err, &merr) {
		t.Fatalf("Query error = %v, want *MalformedResponseError", err)
	}
}

func TestQuery_ListBodyPassesThrough(t *testing.T) {
	body := ` [{"bdbCTid":"1","status":"Error"}]`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	res, err := c.Query(testContext(t), NewQuery(CmdCounties))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Code != 0 || res.Status != "" {
		t.Fatalf("Query = (%q, %d), want (\"\", 0)", res.Status, res.Code)
	}
	if string(res.Body) != body {
		t.Fatalf("Body = %s, want %s", res.Body, body)
	}
}

func TestQuery_MalformedListBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"bdbCTid":"1"},`))
	})

	_, err := c.Query(testContext(t), NewQuery(CmdCounties))
	var merr *MalformedResponseError
	if !errors.As(err, &merr) {
		t.Fatalf("Query error = %v, want *MalformedResponseError", err)
	}
}

func TestPayloadStatus(t *testing.T) {
	cases := []struct {
		body      string
		status    string
		hasStatus bool
	}{
		{`{"status":"OK"}`, "OK", true},
		{"\n\t {\"status\":\"Error\",\"x\":1}", "Error", true},
		{`{"status":42}`, "42", true},
		{`{"3":"Födde"}`, "", false},
		{`[{"status":"Error"}]`, "", false},
		{`"OK"`, "", false},
	}
	for _, tc := range cases {
		status, ok, err := payloadStatus([]byte(tc.body))
		if err != nil {
			t.Fatalf("payloadStatus(%s): %v", tc.body, err)
		}
		if status != tc.status || ok != tc.hasStatus {
			t.Errorf("payloadStatus(%s) = (%q, %v), want (%q, %v)", tc.body, status, ok, tc.status, tc.hasStatus)
		}
	}
	for _, body := range []string{"", "   ", `{"status":`, `[1,`} {
		if _, _, err := payloadStatus([]byte(body)); err == nil {
			t.Errorf("payloadStatus(%q) error = nil, want decode error", body)
		}
	}
}

func TestQuery_UserAgentFollowsBuildVersion(t *testing.T) {
	old := version.Version
	version.Version = "9.9.9"
	t.Cleanup(func() { version.Version = old })

	var gotUA string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	})

	if _, err := c.Query(testContext(t), NewQuery(CmdTest)); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if gotUA != "swesrc/9.9.9" {
		t.Fatalf("User-Agent = %q, want swesrc/9.9.9", gotUA)
	}
}

func TestQuery_NotConfiguredSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	cases := []Credentials{
		{URL: server.URL, Username: "a", Password: ""},
		{URL: server.URL, Username: "  ", Password: "b"},
		{URL: "", Username: "a", Password: "b"},
		{URL: "not a url", Username: "a", Password: "b"},
		{URL: "://broken", Username: "a", Password: "b"},
	}
	for _, creds := range cases {
		c := NewClient(Options{Credentials: creds})
		res, err := c.Query(testContext(t), NewQuery(CmdTest))
		if err != nil {
			t.Fatalf("Query(%+v) returned error: %v", creds, err)
		}
		if res.Status != StatusIncompleteConfiguration || res.Code != CodeFailure {
			t.Fatalf("Query(%+v) = (%q, %d), want incomplete configuration", creds, res.Status, res.Code)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("server hits = %d, want 0", n)
	}
}

func TestClient_SetCredentialsRecomputesHeader(t *testing.T) {
	c := NewClient(Options{Credentials: Credentials{URL: "http://x", Username: "a"}})
	if c.AuthHeader() != "" {
		t.Fatalf("AuthHeader = %q, want empty without password", c.AuthHeader())
	}
	c.SetPassword("p")
	if want := "Basic YTpw"; c.AuthHeader() != want {
		t.Fatalf("AuthHeader = %q, want %q", c.AuthHeader(), want)
	}
	c.SetUsername("b")
	if want := "Basic Yjpw"; c.AuthHeader() != want {
		t.Fatalf("AuthHeader = %q, want %q", c.AuthHeader(), want)
	}
	if !c.Configured() {
		t.Fatalf("Configured = false, want true")
	}
	c.SetURL(" ")
	if c.Configured() {
		t.Fatalf("Configured = true with blank URL")
	}
}

func TestClient_TypedQueries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("do") {
		case "getCounties":
			_, _ = w.Write([]byte(`[{"bdbCTid":"1","bdbCTname":"Stockholm"},{"bdbCTid":2,"bdbCTname":"Uppsala"}]`))
		case "getArchives":
			if q.Get("aid") == "12" {
				_, _ = w.Write([]byte(`{"bdbACid":"12","bdbACname":"Adelsö","bdbACauthor":"Adelsö kyrkoarkiv","bdbACref":"SE/SSA/0001","bdbREid":"5","bdbBKchk":"x"}`))
				return
			}
			_, _ = w.Write([]byte(`[{"bdbACid":"12","bdbACname":"Adelsö","bdbCTid":"1"}]`))
		case "getBookTypes":
			_, _ = w.Write([]byte(`{"3":"Födde","1":"Döde","2":"Vigde"}`))
		case "getBooks":
			if q.Get("bid") == "9" {
				_, _ = w.Write([]byte(`{"bdbBKid":"9","nadBKid":1234,"adBKid":"0","nadSTsignum":"C:1","nadBKvol":"1"}`))
				return
			}
			_, _ = w.Write([]byte(`[{"bdbBKid":"9","nadBTid":"3","nadBTidSpec":"0","nadBKperiod":"1700-1720","bdbBKsignum":"C:1"}]`))
		case "getBookRefs":
			_, _ = w.Write([]byte(`[{"nadBRtype":"bildfil","nadBRref":"ref C0000123_00001"}]`))
		case "getRepositories":
			if q.Get("rin") != "" {
				_, _ = w.Write([]byte(`[{"bdbRItype":"NAME","bdbRIrow":"1","bdbRIinfo":"Stockholms stadsarkiv"}]`))
				return
			}
			_, _ = w.Write([]byte(`[{"rin":"5","name":"Stockholms stadsarkiv","gramps_id":"","type":"4","ref":"SSA"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	counties, err := c.Counties(ctx)
	if err != nil {
		t.Fatalf("Counties returned error: %v", err)
	}
	if len(counties) != 2 || counties[1].ID != 2 || counties[0].Name != "Stockholm" {
		t.Fatalf("Counties = %+v", counties)
	}

	archives, err := c.Archives(ctx, 1)
	if err != nil {
		t.Fatalf("Archives returned error: %v", err)
	}
	if len(archives) != 1 || archives[0].ID != 12 || archives[0].CountyID != 1 {
		t.Fatalf("Archives = %+v", archives)
	}

	archive, err := c.Archive(ctx, 12)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if archive.RepositoryID != "5" || archive.Ref != "SE/SSA/0001" {
		t.Fatalf("Archive = %+v", archive)
	}

	types, err := c.BookTypes(ctx, 12)
	if err != nil {
		t.Fatalf("BookTypes returned error: %v", err)
	}
	first, ok := types.First()
	if !ok || first.ID != "3" || first.Name != "Födde" {
		t.Fatalf("BookTypes.First = %+v, want 3/Födde", first)
	}
	if types.Name("2") != "Vigde" {
		t.Fatalf("BookTypes.Name(2) = %q", types.Name("2"))
	}

	books, err := c.Books(ctx, 12)
	if err != nil {
		t.Fatalf("Books returned error: %v", err)
	}
	if len(books) != 1 || books[0].ID != 9 || books[0].Signum != "C:1" {
		t.Fatalf("Books = %+v", books)
	}

	book, err := c.Book(ctx, 9)
	if err != nil {
		t.Fatalf("Book returned error: %v", err)
	}
	if book.NADBookID != "1234" || !book.HasNAD() || book.HasAD() {
		t.Fatalf("Book = %+v, want NAD link only", book)
	}

	refs, err := c.BookRefs(ctx, book.NADBookID)
	if err != nil {
		t.Fatalf("BookRefs returned error: %v", err)
	}
	if len(refs) != 1 || refs[0].Type != RefImage {
		t.Fatalf("BookRefs = %+v", refs)
	}

	repos, err := c.Repositories(ctx)
	if err != nil {
		t.Fatalf("Repositories returned error: %v", err)
	}
	if len(repos) != 1 || repos[0].RIN != "5" || repos[0].Ref != "SSA" {
		t.Fatalf("Repositories = %+v", repos)
	}

	info, err := c.Repository(ctx, "5")
	if err != nil {
		t.Fatalf("Repository returned error: %v", err)
	}
	if len(info) != 1 || info[0].Type != InfoName {
		t.Fatalf("Repository = %+v", info)
	}
}

func TestClient_TypedQueryMissingKey(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bdbBKid":"9","adBKid":"0"}`))
	})

	_, err := c.Book(testContext(t), 9)
	var merr *MalformedResponseError
	if !errors.As(err, &merr) {
		t.Fatalf("Book error = %v, want *MalformedResponseError", err)
	}
	if len(merr.Missing) != 1 || merr.Missing[0] != "nadBKid" {
		t.Fatalf("Missing = %v, want [nadBKid]", merr.Missing)
	}
}

func TestClient_TypedQueryStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Counties(testContext(t))
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("Counties error = %v, want *StatusError", err)
	}
	if serr.Code != http.StatusUnauthorized || serr.Status != StatusAuthenticationRequired {
		t.Fatalf("StatusError = %+v", serr)
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Fatalf("401 must not match ErrNotConfigured")
	}
}

func TestClient_TypedQueryNotConfigured(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.Counties(testContext(t))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Counties error = %v, want ErrNotConfigured", err)
	}
}

func TestClient_TestReturnsStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	status, err := c.Test(testContext(t))
	if err == nil {
		t.Fatalf("Test returned nil error for 404")
	}
	if status != StatusUnknownPage {
		t.Fatalf("Test status = %q, want %q", status, StatusUnknownPage)
	}
}
