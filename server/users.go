package server

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"trendsetter/accounts"
	"trendsetter/server/middleware"
	"trendsetter/uploads"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
)

const multipartMemory = 8 << 20

type profileRequest struct {
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
	Bio      *string `json:"bio"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	sendJson(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// updateProfile accepts multipart forms with an optional avatar file, or a
// plain JSON body without one.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	var patch accounts.ProfilePatch
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var request profileRequest
		if err := decodeJson(w, r, &request); err != nil {
			writeError(w, err, "User")
			return
		}
		patch = accounts.ProfilePatch{Username: request.Username, FullName: request.FullName, Bio: request.Bio}
	} else {
		form, err := parseMultipart(w, r)
		if err != nil {
			writeError(w, err, "User")
			return
		}
		defer form.RemoveAll()

		patch = accounts.ProfilePatch{
			Username: formValue(form, "username"),
			FullName: formValue(form, "fullName"),
			Bio:      formValue(form, "bio"),
		}
		if header := formFile(form, "avatar"); header != nil {
			avatarUrl, err := s.uploads.Save("avatar", header)
			if err != nil {
				writeError(w, err, "User")
				return
			}
			patch.AvatarUrl = &avatarUrl
		}
	}

	user, err := s.accounts.Update(r.Context(), caller.Id.Hex(), patch)
	if err != nil {
		s.discardUpload(patch.AvatarUrl)
		writeError(w, err, "User")
		return
	}
	sendJson(w, http.StatusOK, user)
}

// getUser serves the caller's own account in full and anyone else's without
// private fields.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	user, err := s.accounts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "User")
		return
	}
	if user.Id == caller.Id {
		sendJson(w, http.StatusOK, user)
		return
	}
	sendJson(w, http.StatusOK, user.Public())
}

func (s *Server) getUserPosts(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	posts, err := s.content.ListUserPosts(r.Context(), caller.Id.Hex(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "User")
		return
	}
	sendJson(w, http.StatusOK, posts)
}

func (s *Server) toggleFollow(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	following, err := s.relations.ToggleFollow(r.Context(), caller.Id.Hex(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "User")
		return
	}
	sendJson(w, http.StatusOK, map[string]bool{
		"success":   true,
		"following": following,
	})
}

func parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxRequestSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, uploads.ErrTooLarge
		}
		return nil, utils.NewValidationError("Invalid multipart form")
	}
	return r.MultipartForm, nil
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	files := form.File[key]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func (s *Server) discardUpload(publicUrl *string) {
	if publicUrl == nil {
		return
	}
	if err := s.uploads.Remove(*publicUrl); err != nil {
		log.Warningf("Error removing upload %s: %v", *publicUrl, err)
	}
}
