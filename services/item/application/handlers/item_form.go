package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/imaging"
	pkgvalidator "github.com/ghuser/lostfound/pkg/validator"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

const maxMemory = 8 << 20

// ItemForm holds the text fields of an item create or edit form.
type ItemForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"required,max=5000"`
	Contact     string `form:"contact" validate:"required,max=200"`
	// Questions is a JSON array of {"question","answer"}; lost items only.
	Questions string `form:"questions"`
}

type questionInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// parseItemForm reads a multipart (or urlencoded) item form and stores the
// optional image. It writes the error response itself and returns ok=false
// on failure. A stored image must be discarded by the caller if the item is
// not saved.
func parseItemForm(w http.ResponseWriter, r *http.Request, images appsvcs.ImageStore) (ItemForm, models.ItemDetails, bool) {
	var form ItemForm
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return form, models.ItemDetails{}, false
		}
		httpx.JSONError(w, http.StatusBadRequest, "Invalid form")
		return form, models.ItemDetails{}, false
	}

	form = ItemForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Contact:     r.FormValue("contact"),
		Questions:   r.FormValue("questions"),
	}
	if !pkgvalidator.ValidateStruct(w, &form) {
		return form, models.ItemDetails{}, false
	}

	d := models.ItemDetails{Title: form.Title, Description: form.Description, Contact: form.Contact}
	if form.Questions != "" {
		var qs []questionInput
		if err := json.Unmarshal([]byte(form.Questions), &qs); err != nil {
			errhttp.WriteError(w, itemdomain.Validationf("questions must be a JSON array of {question, answer}"))
			return form, models.ItemDetails{}, false
		}
		for _, q := range qs {
			d.Questions = append(d.Questions, models.Question{Text: q.Question, Answer: q.Answer})
		}
	}

	path, err := saveImage(r, images)
	if err != nil {
		errhttp.WriteError(w, err)
		return form, models.ItemDetails{}, false
	}
	d.ImageURL = path
	return form, d, true
}

func saveImage(r *http.Request, images appsvcs.ImageStore) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", itemdomain.Validationf("unreadable image upload")
	}
	defer file.Close()

	if images == nil {
		return "", itemdomain.Validationf("image uploads are disabled")
	}
	path, err := images.Save(file)
	if errors.Is(err, imaging.ErrUnsupportedImage) {
		return "", itemdomain.Validationf("image must be a JPEG or PNG")
	}
	return path, err
}
