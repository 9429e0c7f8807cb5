package server

import (
	"net/http"
	"trendsetter/content"
	"trendsetter/server/middleware"
	"trendsetter/utils"
)

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	form, err := parseMultipart(w, r)
	if err != nil {
		writeError(w, err, "Post")
		return
	}
	defer form.RemoveAll()

	header := formFile(form, "image")
	if header == nil {
		writeError(w, utils.NewValidationError("Image is required"), "Post")
		return
	}
	imageUrl, err := s.uploads.Save("image", header)
	if err != nil {
		writeError(w, err, "Post")
		return
	}

	input := content.NewPost{ImageUrl: imageUrl}
	if value := formValue(form, "caption"); value != nil {
		input.Caption = *value
	}
	if value := formValue(form, "tags"); value != nil {
		input.Tags = *value
	}
	if value := formValue(form, "location"); value != nil {
		input.Location = *value
	}

	post, err := s.content.CreatePost(r.Context(), caller.Id.Hex(), input)
	if err != nil {
		s.discardUpload(&imageUrl)
		writeError(w, err, "Post")
		return
	}
	sendJson(w, http.StatusCreated, post)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	posts, err := s.content.ListPosts(r.Context(), caller.Id.Hex())
	if err != nil {
		writeError(w, err, "Post")
		return
	}
	sendJson(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	post, err := s.content.GetPost(r.Context(), caller.Id.Hex(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Post")
		return
	}
	sendJson(w, http.StatusOK, post)
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	liked, err := s.relations.ToggleLike(r.Context(), caller.Id.Hex(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Post")
		return
	}
	sendJson(w, http.StatusOK, map[string]bool{
		"success": true,
		"liked":   liked,
	})
}
