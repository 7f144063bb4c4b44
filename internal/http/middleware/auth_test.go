package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sbr_farm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func TestJWTAndRequireAdmin(t *testing.T) {
	tokens, err := service.NewTokens("test-secret", clockwork.NewRealClock())
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWT(tokens), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(200, gin.H{"id": id})
	})
	r.GET("/admin", JWT(tokens), RequireAdmin(), func(c *gin.Context) {
		c.Status(200)
	})

	player, _ := tokens.Generate(5, "", time.Hour)
	admin, _ := tokens.Generate(1, service.RoleAdmin, time.Hour)

	cases := []struct {
		path, token string
		want        int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "garbage", http.StatusUnauthorized},
		{"/me", player, http.StatusOK},
		{"/admin", player, http.StatusForbidden},
		{"/admin", admin, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s with %q: got %d, want %d", tc.path, tc.token, w.Code, tc.want)
		}
	}
}
