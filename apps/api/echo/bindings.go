package echoapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

const (
	orderingParam = "ordering"
	fileField     = "archivo"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam))
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// bindUpload returns the single file sent under the `archivo` field along with the closer of its temporary file.
// A missing file is an error unless `optional` is set, in which case the upload is nil.
func bindUpload(ctx echo.Context, maxSize int64, optional bool) (*core.Upload, io.Closer, error) {
	fieldErr := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: fileField, Error: msg})
	}

	req := ctx.Request()
	req.Body = http.MaxBytesReader(ctx.Response(), req.Body, maxSize+1<<20) // room for the other fields
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, nil, fieldErr("no se pudo leer el formulario: " + err.Error())
	}

	files := form.File[fileField]
	switch {
	case len(files) == 0 && optional:
		return nil, nopCloser{}, nil
	case len(files) == 0:
		return nil, nil, fieldErr("archivo es obligatorio")
	case len(files) > 1:
		return nil, nil, fieldErr("solo se permite un archivo")
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening uploaded file")
	}
	return &core.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	}, f, nil
}

// formValues returns the non-file fields of a parsed multipart form.
func formValues(ctx echo.Context) (map[string]string, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, errors.Wrap(err, "reading multipart form")
	}
	values := make(map[string]string, len(form.Value))
	for k, v := range form.Value {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values, nil
}
