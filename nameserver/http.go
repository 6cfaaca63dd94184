package nameserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanyuan666/yarp/internal/observability"
)

// httpRegistration is the JSON shape of one registry row.
type httpRegistration struct {
	Name    string `json:"name"`
	Carrier string `json:"carrier,omitempty"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Active  bool   `json:"active"`
}

// Router builds the HTTP view: registry listing, subscriptions,
// topics, and metrics.
func (s *Server) Router() *gin.Engine {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/names", func(c *gin.Context) {
		var out []httpRegistration
		for _, name := range s.store.Names() {
			reg, active := s.store.Query(name)
			row := httpRegistration{Name: name, Active: active}
			if active {
				row.Carrier = reg.Carrier
				row.Host = reg.Host
				row.Port = reg.Port
			}
			out = append(out, row)
		}
		c.JSON(http.StatusOK, gin.H{"name_server": s.name, "names": out})
	})

	router.GET("/subscriptions", func(c *gin.Context) {
		subs, err := s.subs.Subscriptions(c.Query("port"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
	})

	router.GET("/topics", func(c *gin.Context) {
		topics, err := s.subs.Topics()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": topics})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// ServeHTTP runs the HTTP view until the context ends.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
