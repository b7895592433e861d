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

const sampleInitData = "query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
	"&user=%7B%22id%22%3A5060715466%2C%22first_name%22%3A%22Bob%22%2C%22last_name%22%3A%22Trader%22%2C%22username%22%3A%22defi_master%22%7D" +
	"&auth_date=1677649900&hash=e2e58"

func TestExtractTelegramData(t *testing.T) {
	data, err := ExtractTelegramData(sampleInitData)
	require.NoError(t, err)

	assert.Equal(t, int64(5060715466), data.ID)
	assert.Equal(t, "defi_master", data.Username)
	assert.Equal(t, "Bob", data.FirstName)
	assert.Equal(t, "Trader", data.LastName)
	assert.Equal(t, int64(1677649900), data.AuthDate.Unix())

	_, err = ExtractTelegramData("user=%7B%7D")
	assert.Error(t, err)
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		auth     *TelegramAuth
		header   string
		query    string
		expected int
	}{
		{name: "Missing header", auth: NewTelegramAuth("token", true), expected: http.StatusUnauthorized},
		{name: "Wrong scheme", auth: NewTelegramAuth("token", true), header: "Bearer x", expected: http.StatusUnauthorized},
		{name: "Debug mode skips signature", auth: NewTelegramAuth("token", true), header: "Telegram " + sampleInitData, expected: http.StatusOK},
		{name: "Query parameter", auth: NewTelegramAuth("token", true), query: sampleInitData, expected: http.StatusOK},
		{name: "Bad signature", auth: NewTelegramAuth("token", false), header: "Telegram " + sampleInitData, expected: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me", tt.auth.TelegramAuthMiddleware(), func(c *gin.Context) {
				user, ok := UserFromContext(c)
				require.True(t, ok)
				c.JSON(http.StatusOK, gin.H{"id": user.ID})
			})

			target := "/me"
			if tt.query != "" {
				target += "?init_data=" + url.QueryEscape(tt.query)
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}
