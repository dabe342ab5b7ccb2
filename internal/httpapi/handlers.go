package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalnet/machined/internal/errs"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/roleengine"
	"github.com/evalnet/machined/pkg/jsonx"
	"github.com/evalnet/machined/pkg/value"
)

type Server struct {
	engine *roleengine.Engine
}

func newServer(engine *roleengine.Engine) *Server {
	return &Server{engine: engine}
}

// respondError maps a core error to its HTTP status and a
// rendered JSON body, attaching it to Gin's error list for ZapLogger.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(errs.HTTPStatus(err), errorResp{Message: err.Error()})
}

// handleNewMachine implements POST /v0/machines.
func (s *Server) handleNewMachine(c *gin.Context) {
	id, err := s.engine.NewMachine(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMachineResp{ID: string(id)})
}

// handleQuery implements POST /v0/machines/:id/query.
func (s *Server) handleQuery(c *gin.Context) {
	id := machine.ID(c.Param("id"))

	var req queryReq
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		respondError(c, errs.InvalidInput(err))
		return
	}

	result, err := s.engine.Query(c.Request.Context(), id, req.Expression)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, queryResp{Expression: result})
}

// handleSend implements POST /v0/machines/:id/send.
func (s *Server) handleSend(c *gin.Context) {
	id := machine.ID(c.Param("id"))

	var req sendReq
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		respondError(c, errs.InvalidInput(err))
		return
	}

	results, err := s.engine.Send(c.Request.Context(), id, req.Expressions)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []value.Value{}
	}
	c.JSON(http.StatusOK, sendResp{Results: results})
}
