package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	emailsvc "github.com/trezcool/shule/services/email"
	loggersvc "github.com/trezcool/shule/services/logger"
	inmemstore "github.com/trezcool/shule/storage/document/inmem"
)

var (
	conf      *core.Config
	schoolSvc *school.Service
	textGen   *textGenFake

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

// textGenFake stands in for the text generation service.
type textGenFake struct {
	text string
	err  error
}

var _ core.TextGenService = (*textGenFake)(nil)

func (svc *textGenFake) Generate(context.Context, string) (string, error) {
	return svc.text, svc.err
}

func setup(t *testing.T) Server {
	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	logger := loggersvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
	store := inmemstore.New(logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	schoolSvc = school.NewService(store, logger, mailSvc, conf)
	if err := schoolSvc.Init(context.Background()); err != nil {
		t.Fatalf("schoolSvc.Init(): %v", err)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	textGen = &textGenFake{err: core.ErrTextGenUnavailable}

	return NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			SchoolSvc:      schoolSvc,
			TextGenSvc:     textGen,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr school.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// noPwd mirrors the API's password stripping for expected payloads.
func noPwd(usr school.User) school.User {
	usr.Password = ""
	return usr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil { // code-only check (e.g. 204 No Content)
		if rec.Body.Len() > 0 {
			t.Errorf("failed! data = %v; want empty body", rec.Body.String())
		}
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
