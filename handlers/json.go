package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(rw http.ResponseWriter, value interface{}) {
	if err := json.NewEncoder(rw).Encode(value); err != nil {
		http.Error(rw, "Unable to convert to json", http.StatusInternalServerError)
	}
}
