package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/school"
	testutil "github.com/trezcool/shule/tests"
)

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	testutil.CreateTeacher(t, schoolSvc, "Teacher", "teacher@test.cd", "Housekeeping")

	tests := []httpTest{
		{
			name: "required fields", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":     "this field is required",
				"email":    "this field is required",
				"password": "this field is required",
				"role":     "this field is required",
			}),
		},
		{
			name:     "invalid email",
			body:     marchallObj(t, echoapi.RegisterRequest{Name: "Jo", Email: "lol", Password: "s3cret", Role: school.RoleStudent}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name:     "short password",
			body:     marchallObj(t, echoapi.RegisterRequest{Name: "Jo", Email: "jo@test.cd", Password: "abc", Role: school.RoleStudent}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must be at least 6 characters in length"}),
		},
		{
			name:     "invalid role",
			body:     marchallObj(t, echoapi.RegisterRequest{Name: "Jo", Email: "jo@test.cd", Password: "s3cret", Role: "boss"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "email already taken",
			body:     marchallObj(t, echoapi.RegisterRequest{Name: "Jo", Email: "Teacher@test.cd", Password: "s3cret", Role: school.RoleStudent}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name:     "registered as pending",
			body:     marchallObj(t, echoapi.RegisterRequest{Name: "Jo", Email: "jo@test.cd", Password: "s3cret", Role: school.RoleStudent}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr school.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.Status != school.StatusPending {
					t.Errorf("failed! status = %v; want %v", usr.Status, school.StatusPending)
				}
				if usr.Password != "" {
					t.Error("failed! password leaked in response")
				}
				if usr.ID == "" {
					t.Error("failed! empty id")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	student := testutil.CreateStudent(t, schoolSvc, "Hero", "hero@test.cd", "11", "Marriott", 60000)
	testutil.CreateUser(t, schoolSvc, "Pending", "pending@test.cd", "s3cret", school.RoleTeacher, false)
	dropout := testutil.CreateStudent(t, schoolSvc, "Gone", "gone@test.cd", "11", "Marriott", 60000)
	if _, err := schoolSvc.DispatchSync(context.Background(), school.EditUser{
		ID: dropout.ID, Updates: school.UserUpdates{Status: school.StatusDroppedOut},
	}); err != nil {
		t.Fatalf("DispatchSync(): %v", err)
	}

	tests := []httpTest{
		{
			name: "required fields", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ghost@test.cd", Password: "password"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, echoapi.LoginRequest{Email: student.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "pending account",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "pending@test.cd", Password: "s3cret"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account is pending approval"}),
		},
		{
			name:     "inactive account",
			body:     marchallObj(t, echoapi.LoginRequest{Email: dropout.Email, Password: "password"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account is not active"}),
		},
		{
			name:     "logged in",
			body:     marchallObj(t, echoapi.LoginRequest{Email: " HERO@test.CD ", Password: "password"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token; just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	student := testutil.CreateStudent(t, schoolSvc, "Hero", "hero@test.cd", "11", "Marriott", 60000)
	dropout := testutil.CreateStudent(t, schoolSvc, "Gone", "gone@test.cd", "11", "Marriott", 60000)
	if _, err := schoolSvc.DispatchSync(context.Background(), school.EditUser{
		ID: dropout.ID, Updates: school.UserUpdates{Status: school.StatusDroppedOut},
	}); err != nil {
		t.Fatalf("DispatchSync(): %v", err)
	}

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   student.ID,
			Audience:  "Shule",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Name:         student.Name,
		Email:        student.Email,
		Role:         student.Role,
		AllowedRoles: student.AllowedRoles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, dropout), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account is not active"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	student := testutil.CreateStudent(t, schoolSvc, "Hero", "hero@test.cd", "11", "Marriott", 60000)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own profile", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, noPwd(student))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	student := testutil.CreateStudent(t, schoolSvc, "Hero", "hero@test.cd", "11", "Marriott", 60000)
	admin := testutil.CreateUser(t, schoolSvc, "Admin", "admin@test.cd", "s3cret", school.RoleAdministrator, true)

	state := schoolSvc.State()
	all := make([]interface{}, 0, len(state.Users))
	for _, usr := range state.Users {
		all = append(all, noPwd(usr))
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Staff required", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Get all", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, all...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_approveReject(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, schoolSvc, "Admin", "admin@test.cd", "s3cret", school.RoleAdministrator, true)
	teacher := testutil.CreateTeacher(t, schoolSvc, "Teacher", "teacher@test.cd", "Housekeeping")
	pendingStudent := testutil.CreateUser(t, schoolSvc, "Applicant", "applicant@test.cd", "s3cret", school.RoleStudent, false)
	pendingReject := testutil.CreateUser(t, schoolSvc, "Unwanted", "unwanted@test.cd", "s3cret", school.RoleStudent, false)
	pendingAccountant := testutil.CreateUser(t, schoolSvc, "Counter", "counter@test.cd", "s3cret", school.RoleAccountant, false)

	adminToken := getToken(t, admin)
	fee := 60000.0
	approveBody := marchallObj(t, echoapi.UpdateUserRequest{ClassID: "11", Section: "Taj", AnnualFee: &fee})

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, "/v1/users/"+pendingStudent.ID+"/approve", approveBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Teachers cannot approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+pendingStudent.ID+"/approve", getToken(t, teacher), approveBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Role above the approver's reach", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+pendingAccountant.ID+"/approve", adminToken, marchallObj(t, echoapi.UpdateUserRequest{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Approved with placement merged in", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+pendingStudent.ID+"/approve", adminToken, approveBody)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr school.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if usr.Status != school.StatusActive {
			t.Errorf("failed! status = %v; want %v", usr.Status, school.StatusActive)
		}
		if usr.ClassID != "11" || usr.Section != "Taj" {
			t.Errorf("failed! placement = %v/%v; want 11/Taj", usr.ClassID, usr.Section)
		}
		if usr.AnnualFee == nil || *usr.AnnualFee != fee {
			t.Errorf("failed! annualFee = %v; want %v", usr.AnnualFee, fee)
		}
	})

	t.Run("Active accounts cannot be re-approved", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+pendingStudent.ID+"/approve", adminToken, approveBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("Rejected registration is removed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+pendingReject.ID+"/reject", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

		state := schoolSvc.State()
		if _, found := state.FindUser(pendingReject.ID); found {
			t.Error("failed! rejected account still in state")
		}
	})

	t.Run("Active accounts cannot be rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+teacher.ID+"/reject", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}

func Test_userApi_switchRole(t *testing.T) {
	app := setup(t)

	multi := school.User{
		Name:         "Multi",
		Email:        "multi@test.cd",
		Password:     "s3cret",
		Role:         school.RoleTeacher,
		AllowedRoles: []string{school.RoleTeacher, school.RoleAdministrator},
		Status:       school.StatusActive,
	}
	next, err := schoolSvc.DispatchSync(context.Background(), school.AddUser{User: multi})
	if err != nil {
		t.Fatalf("DispatchSync(): %v", err)
	}
	for _, usr := range next.Users {
		if usr.Email == multi.Email {
			multi = usr
		}
	}
	token := getToken(t, multi)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid role", token: token,
			body:     marchallObj(t, echoapi.SwitchRoleRequest{Role: "boss"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "role not allowed", token: token,
			body:     marchallObj(t, echoapi.SwitchRoleRequest{Role: school.RoleStudent}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role not allowed for this account"}),
		},
		{
			name: "switched", token: token,
			body:     marchallObj(t, echoapi.SwitchRoleRequest{Role: school.RoleAdministrator}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/switch-role", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				state := schoolSvc.State()
				usr, _ := state.FindUser(multi.ID)
				if usr.Role != school.RoleAdministrator {
					t.Errorf("failed! role = %v; want %v", usr.Role, school.RoleAdministrator)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
