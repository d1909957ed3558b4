package routes

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"picture-same/internal/evaluator"
	"picture-same/internal/imageio"
	"picture-same/internal/myhttp"
	"picture-same/internal/storage"
	"picture-same/internal/tensor"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxMemory = 32 << 20

type SameResponse struct {
	Classification evaluator.Classification `json:"classification"`
	Reason         evaluator.Reason         `json:"reason"`
	Message        string                   `json:"message,omitempty"`
	DiffAmount     float64                  `json:"diffAmount"`
	DiffData       string                   `json:"diffData,omitempty"`
	DiffURL        string                   `json:"diffURL,omitempty"`
}

// Same compares the multipart files "baseline" and "target". When the pictures
// differ the PNG encoded difference is returned inline, and also persisted to
// storageClient if one is given.
func Same(e *evaluator.Evaluator, storageClient storage.Storage, evaluationsTotal metric.Int64Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		baselineData, err := readFormFile(r, "baseline")
		if err != nil {
			logger.Debug("failed to read baseline", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		targetData, err := readFormFile(r, "target")
		if err != nil {
			logger.Debug("failed to read target", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		baselineImage, _, err := imageio.Decode(baselineData)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		targetImage, _, err := imageio.Decode(targetData)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		result, err := e.Evaluate(r.Context(), baselineImage, targetImage)
		if err != nil {
			if errors.Is(err, tensor.ErrShapeMismatch) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("failed to evaluate pictures", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		evaluationsTotal.Add(r.Context(), 1, metric.WithAttributes(
			attribute.Key("classification").String(result.Classification.String()),
		))

		response := SameResponse{
			Classification: result.Classification,
			Reason:         result.Reason,
			DiffAmount:     result.DiffAmount,
		}
		if result.Classification == evaluator.Same {
			response.Message = result.Message("")
		}

		if result.Classification == evaluator.Different {
			data, err := imageio.EncodeBytes(result.Diff, "diff.png")
			if err != nil {
				logger.Error("failed to encode difference", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffData = base64.StdEncoding.EncodeToString(data)

			if storageClient != nil {
				h := sha256.New()
				h.Write(baselineData)
				h.Write(targetData)
				key := fmt.Sprintf("same/diff/%x/%s.png", h.Sum(nil)[:8], time.Now().Format("20060102150405"))

				url, err := storageClient.Put(r.Context(), key, data)
				if err != nil {
					logger.Error("failed to store difference", "error", err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				response.DiffURL = url
				response.Message = result.Message(url)
			}
		}

		logger.Info("evaluated pictures", "classification", result.Classification, "reason", result.Reason, "diffAmount", result.DiffAmount)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func readFormFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, err
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	return io.ReadAll(file)
}
