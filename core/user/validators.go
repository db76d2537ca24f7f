package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

var (
	professorFieldTag  = "profesor_requerido"
	professorFieldText = "{0} es obligatorio para el rol profesor"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("la contraseña debe tener al menos %d caracteres", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "la contraseña no debe contener espacios"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "la contraseña no puede ser solo numérica"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "la contraseña es demasiado parecida a tus datos personales"
)

// RegisterValidators registers the user validators and their messages.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, professorFieldTag, professorFieldText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// newUserStructValidation checks the password policy and the professor profile.
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok {
		return
	}
	if nu.Role == "" || nu.Role == RoleProfessor {
		if nu.EmployeeNumber == "" {
			sl.ReportError(nu.EmployeeNumber, "numeroEmpleado", "EmployeeNumber", professorFieldTag, "")
		}
		if nu.Department == "" {
			sl.ReportError(nu.Department, "departamento", "Department", professorFieldTag, "")
		}
	}
	if nu.Password != "" {
		validatePassword(nu.Password, nu.Name, nu.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var digitCount int
	chars := []rune(pwd)
	if len(chars) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range chars {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(chars) {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	localPart := strings.SplitN(email, "@", 2)[0]
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim || getRatio(lpwd, localPart) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
