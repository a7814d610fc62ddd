package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/utils"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	io.Copy(w, in)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		log.Printf("[web] Unmarshalable response value: %s", utils.SDump(data))
		WriteError(w, errors.Wrapf(err, "Failed to marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, res)
}

// WriteJsonFile sends a value as a downloadable pretty-printed json file.
func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal %q", fileName))
		return
	}
	WriteFile(w, bytes.NewReader(data), fileName+".json")
}

// ReadFormFile pulls one uploaded file out of a multipart POST.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, errors.Errorf("Invalid http method %q", r.Method)
	}
	f, _, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get form file %q", formFileKey)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read form file %q", formFileKey)
	}
	return data, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		log.Printf("[web] Error writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	log.Printf("[web] %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	data, merr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if merr != nil {
		log.Printf("[web] Error marshaling error %q: %v", err, merr)
		return
	}
	WriteResult(w, data)
}

// WriteNotFound is WriteError with a 404.
func WriteNotFound(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	data, merr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if merr != nil {
		return
	}
	WriteResult(w, data)
}
