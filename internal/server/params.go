package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/params"
)

type fieldInfo struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Live  bool    `json:"live"`
	Value float64 `json:"value"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

func (s *Server) listFields(c *gin.Context) {
	snap := s.surface.Read()
	out := make([]fieldInfo, 0, len(params.Fields()))
	for _, f := range params.Fields() {
		out = append(out, fieldInfo{Name: f.String(), Label: f.Label(), Live: f.Live(), Value: snap.Get(f)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.surface.Read())
}

// putParams replaces every value at once. Omitted fields are zero and will
// usually fail validation.
func (s *Server) putParams(c *gin.Context) {
	var v params.Values
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := s.surface.Update(func(cur *params.Values) error {
		*cur = v
		return nil
	})
	s.respondWrite(c, snap, err)
}

// patchParams applies a set of named fields as one group write.
func (s *Server) patchParams(c *gin.Context) {
	var body map[string]float64
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changes := make(map[params.Field]float64, len(body))
	for name, value := range body {
		f, err := params.ParseField(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		changes[f] = value
	}
	snap, err := s.surface.Update(func(cur *params.Values) error {
		for f, value := range changes {
			if err := cur.Set(f, value); err != nil {
				return err
			}
		}
		return nil
	})
	s.respondWrite(c, snap, err)
}

func (s *Server) putField(c *gin.Context) {
	f, err := params.ParseField(c.Param("field"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"value\": <number>}"})
		return
	}
	if err := s.surface.Write(f, *req.Value); err != nil {
		s.respondWrite(c, params.Snapshot{}, err)
		return
	}
	s.respondWrite(c, s.surface.Read(), nil)
}

func (s *Server) reset(c *gin.Context) {
	snap := s.surface.Reset()
	s.logger.Info("parameters reset", "epoch", snap.Epoch, "source", "http")
	c.JSON(http.StatusOK, snap)
}

func (s *Server) restart(c *gin.Context) {
	snap := s.surface.Restart()
	s.logger.Info("simulation restarted", "epoch", snap.Epoch, "source", "http")
	c.JSON(http.StatusOK, snap)
}

func (s *Server) respondWrite(c *gin.Context, snap params.Snapshot, err error) {
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, dynamo.ErrInvalidParameter) {
			status = http.StatusUnprocessableEntity
		}
		body := gin.H{"error": err.Error()}
		var perr *dynamo.ParameterError
		if errors.As(err, &perr) {
			body["field"] = perr.Field
			body["reason"] = perr.Reason
		}
		c.JSON(status, body)
		return
	}
	s.logger.Debug("parameters written", "version", snap.Version)
	c.JSON(http.StatusOK, snap)
}

type telemetry struct {
	Type    string             `json:"type"`
	Frame   any                `json:"frame"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Params  params.Snapshot    `json:"params"`
}

func (s *Server) snapshot() telemetry {
	t := telemetry{Type: "telemetry", Params: s.surface.Read()}
	if s.frames != nil {
		t.Frame = s.frames.Latest()
	}
	if s.metrics != nil {
		t.Metrics = s.metrics.Values()
	}
	return t
}

func (s *Server) latestFrame(c *gin.Context) {
	if s.frames == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no simulation attached"})
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}
