package templates_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-media-identity/pkg/mailer/templates"
)

func TestIPAPIResolver_Lookup(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if strings.HasSuffix(r.URL.Path, "/198.51.100.7") {
			_, _ = w.Write([]byte(`{"status":"success","country":"Indonesia","regionName":"West Java","city":"Bandung","timezone":"Asia/Jakarta"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	r := templates.IPAPIResolver{Client: srv.Client(), BaseURL: srv.URL}
	g, err := r.Lookup(context.Background(), " 198.51.100.7 ")
	require.NoError(t, err)
	assert.Equal(t, "/198.51.100.7", gotPath)
	assert.Equal(t, "Bandung, West Java, Indonesia", templates.FormatGeo(g))
	assert.Equal(t, "Asia/Jakarta", g.Timezone)

	_, err = r.Lookup(context.Background(), "203.0.113.1")
	assert.ErrorContains(t, err, "reserved range")
}

func TestIPAPIResolver_SkipsNonPublic(t *testing.T) {
	r := templates.IPAPIResolver{BaseURL: "http://127.0.0.1:1"}
	for _, ip := range []string{"", "nope", "127.0.0.1", "10.1.2.3", "192.168.0.5"} {
		_, err := r.Lookup(context.Background(), ip)
		assert.Error(t, err, ip)
	}
}

func TestFormatGeo_SkipsBlankParts(t *testing.T) {
	assert.Equal(t, "Paris, France", templates.FormatGeo(templates.Geo{City: "Paris", Region: " ", Country: "France"}))
	assert.Empty(t, templates.FormatGeo(templates.Geo{}))
}
