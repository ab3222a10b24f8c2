package hrerp

import "fmt"

// Detail pages are addressed by url-space ids, never real ids.

func CandidateViewPath(urlID int64) string {
	return fmt.Sprintf("/candidate/dispView/%d?kw=", urlID)
}

func CaseViewPath(urlID int64) string {
	return fmt.Sprintf("/case/dispView/%d", urlID)
}

func CandidateListPath(page int) string {
	return fmt.Sprintf("/searchcandidate/dispSearchList/%d", page)
}

func FileDownloadPath(key string) string {
	return "/file/procDownload/" + key
}
