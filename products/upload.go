package products

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"vendo/utils"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	productPicDir = "./static/productpic"
	thumbWidth    = 300
)

func hasProductImage(r *http.Request) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.File["image"]) > 0
}

// saveProductImage stores the uploaded product image and a resized
// thumbnail. Writes the HTTP error response itself on failure so
// callers only need to bail out.
func saveProductImage(w http.ResponseWriter, r *http.Request) (string, string, error) {
	if !hasProductImage(r) {
		return "", "", nil
	}

	header := r.MultipartForm.File["image"][0]
	if !utils.ValidateImageFileType(w, header) {
		return "", "", fmt.Errorf("unsupported image type")
	}

	file, err := header.Open()
	if err != nil {
		http.Error(w, "Could not read image", http.StatusBadRequest)
		return "", "", err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image file", http.StatusBadRequest)
		return "", "", err
	}

	if err := os.MkdirAll(filepath.Join(productPicDir, "thumb"), 0o755); err != nil {
		http.Error(w, "Unable to save image", http.StatusInternalServerError)
		return "", "", err
	}

	id := uuid.New().String()
	filename := id + filepath.Ext(header.Filename)

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "Unable to save image", http.StatusInternalServerError)
		return "", "", err
	}
	dst, err := os.Create(filepath.Join(productPicDir, filename))
	if err != nil {
		http.Error(w, "Unable to save image", http.StatusInternalServerError)
		return "", "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		http.Error(w, "Error saving image", http.StatusInternalServerError)
		return "", "", err
	}

	thumbName := id + ".jpg"
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	out, err := os.Create(filepath.Join(productPicDir, "thumb", thumbName))
	if err != nil {
		http.Error(w, "Unable to save thumbnail", http.StatusInternalServerError)
		return "", "", err
	}
	defer out.Close()
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		http.Error(w, "Error saving thumbnail", http.StatusInternalServerError)
		return "", "", err
	}

	return "/static/productpic/" + filename, "/static/productpic/thumb/" + thumbName, nil
}
