package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

type statusRequest struct {
	Status string `json:"status"`
}

type questionsRequest struct {
	Questions []app.QuestionInput `json:"questions"`
}

type submitRequest struct {
	Answers []domain.AnswerSubmission `json:"answers"`
}

func (s *Server) listMeets(c *gin.Context) {
	meets, err := s.meets.ListMeets(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMeetViews(meets, currentUser(c)))
}

func (s *Server) getMeet(c *gin.Context) {
	meet, err := s.meets.GetMeet(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMeetView(meet, currentUser(c)))
}

func (s *Server) createMeet(c *gin.Context) {
	var req app.CreateMeetInput
	if !bindJSON(c, &req) {
		return
	}
	user := currentUser(c)
	meet, err := s.meets.CreateMeet(c.Request.Context(), user.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMeetView(meet, user))
}

func (s *Server) updateMeetStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	meet, err := s.meets.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMeetView(meet, currentUser(c)))
}

func (s *Server) deleteMeet(c *gin.Context) {
	if err := s.meets.DeleteMeet(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addQuestions(c *gin.Context) {
	var req questionsRequest
	if !bindJSON(c, &req) {
		return
	}
	meet, err := s.meets.AddQuestions(c.Request.Context(), c.Param("id"), req.Questions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMeetView(meet, currentUser(c)))
}

func (s *Server) removeQuestion(c *gin.Context) {
	meet, err := s.meets.RemoveQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMeetView(meet, currentUser(c)))
}

func (s *Server) startMeet(c *gin.Context) {
	user := currentUser(c)
	res, err := s.meets.Start(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, startView{Meet: newMeetView(res.Meet, user), Attempt: res.Attempt})
}

func (s *Server) submitMeet(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.submissions.SubmitAttempt(c.Request.Context(), c.Param("id"), currentUser(c), req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) evaluateMeet(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.submissions.Evaluate(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) myAttempt(c *gin.Context) {
	attempt, err := s.submissions.Attempt(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (s *Server) dashboard(c *gin.Context) {
	totals, err := s.meets.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
