package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initData(user string) string {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", user)
	return v.Encode()
}

func TestExtractTelegramData(t *testing.T) {
	data, err := ExtractTelegramData(initData(`{"id":42,"username":"meow","first_name":"Mochi"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.ID)
	assert.Equal(t, "meow", data.Username)
	assert.Equal(t, "Mochi", data.FirstName)
	assert.Equal(t, int64(1700000000), data.AuthDate.Unix())

	_, err = ExtractTelegramData(initData(`{"username":"anon"}`))
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = ExtractTelegramData("user=%7B%7D")
	assert.Error(t, err)
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a := NewTelegramAuth("token", true)
	router := gin.New()
	router.GET("/me", a.TelegramAuthMiddleware(), func(c *gin.Context) {
		u, ok := UserFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Bearer abc", status: http.StatusUnauthorized},
		{name: "no user", header: "Telegram auth_date=1", status: http.StatusUnauthorized},
		{name: "debug mode accepts unsigned data", header: "Telegram " + initData(`{"id":7}`), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestTelegramAuthMiddleware_RejectsUnsigned(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a := NewTelegramAuth("token", false)
	router := gin.New()
	router.GET("/me", a.TelegramAuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Telegram "+initData(`{"id":7}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
