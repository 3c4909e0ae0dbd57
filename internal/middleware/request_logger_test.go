package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	logger.InitWithLevel("info")
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger.GetLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	router.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	testCases := []struct {
		name   string
		path   string
		status int
		level  logrus.Level
	}{
		{name: "Success", path: "/ok", status: http.StatusOK, level: logrus.InfoLevel},
		{name: "Server error", path: "/broken", status: http.StatusInternalServerError, level: logrus.WarnLevel},
		{name: "Not found", path: "/missing", status: http.StatusNotFound, level: logrus.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hook.Reset()

			req, _ := http.NewRequest("GET", tc.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tc.level, entry.Level)
			assert.Equal(t, "GET", entry.Data["method"])
			assert.Equal(t, tc.path, entry.Data["path"])
			assert.Equal(t, tc.status, entry.Data["status"])
		})
	}
}
