package rules

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dssldrf/dusseldorf/internal/dsslmsg"
)

// splitCSV splits a comma-separated parameter into trimmed items.
func splitCSV(value string) (items []string) {
	for _, item := range strings.Split(value, ",") {
		items = append(items, strings.TrimSpace(item))
	}

	return items
}

// dnsTypePredicate is satisfied when the query type is in the
// comma-separated list, case-insensitively.
func dnsTypePredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	dnsReq, ok := req.(*dsslmsg.DNSRequest)
	if !ok {
		return false, nil
	}

	for _, t := range splitCSV(value) {
		if strings.EqualFold(t, dnsReq.QType) {
			return true, nil
		}
	}

	return false, nil
}

// httpTLSPredicate is satisfied when the request arrived over TLS.
func httpTLSPredicate(req dsslmsg.Request, _ string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)

	return ok && httpReq.TLS, nil
}

// httpMethodPredicate is satisfied when the request method is in the
// comma-separated list, case-insensitively.
func httpMethodPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	for _, m := range splitCSV(value) {
		if strings.EqualFold(m, httpReq.Method) {
			return true, nil
		}
	}

	return false, nil
}

// httpPathPredicate is satisfied when the regular expression matches the
// request path.
func httpPathPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	re, err := regexp.Compile(value)
	if err != nil {
		return false, err
	}

	return re.MatchString(httpReq.Path), nil
}

// httpBodyPredicate is satisfied when the regular expression matches the
// decoded request body.
func httpBodyPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	re, err := regexp.Compile(value)
	if err != nil {
		return false, err
	}

	return re.MatchString(httpReq.Body), nil
}

// httpHeaderPredicate is satisfied when the named header is present,
// case-insensitively.
func httpHeaderPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	_, ok = httpReq.Header(strings.TrimSpace(value))

	return ok, nil
}

// httpHeaderKeysPredicate is satisfied when every header in the
// comma-separated list is present.
func httpHeaderKeysPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	for _, name := range splitCSV(value) {
		if _, ok = httpReq.Header(name); !ok {
			return false, nil
		}
	}

	return true, nil
}

// httpHeaderValuesPredicate is satisfied when, for every pair of the JSON
// object parameter, the header is present and equals the value.
func httpHeaderValuesPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	want := map[string]string{}
	err = json.Unmarshal([]byte(value), &want)
	if err != nil {
		return false, err
	}

	for name, wantVal := range want {
		got, ok := httpReq.Header(name)
		if !ok || got != wantVal {
			return false, nil
		}
	}

	return true, nil
}

// httpHeaderRegexesPredicate is satisfied when, for every pair of the JSON
// object parameter, the header is present and matches the regular expression.
func httpHeaderRegexesPredicate(req dsslmsg.Request, value string) (ok bool, err error) {
	httpReq, ok := req.(*dsslmsg.HTTPRequest)
	if !ok {
		return false, nil
	}

	want := map[string]string{}
	err = json.Unmarshal([]byte(value), &want)
	if err != nil {
		return false, err
	}

	for name, expr := range want {
		re, reErr := regexp.Compile(expr)
		if reErr != nil {
			return false, reErr
		}

		got, ok := httpReq.Header(name)
		if !ok || !re.MatchString(got) {
			return false, nil
		}
	}

	return true, nil
}
