package ocr

import "testing"

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html>
 <head><title></title></head>
 <body>
  <div class='ocr_page' id='page_1' title='image "page.png"; bbox 0 0 1191 1684; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 100 200 600 260">
    <p class='ocr_par' id='par_1_1' title="bbox 100 200 600 260">
     <span class='ocr_line' id='line_1_1' title="bbox 100 200 600 230">
      <span class='ocrx_word' id='word_1_1' title='bbox 100 200 190 228; x_wconf 93'>Vorname:</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 400 200 420 228; x_wconf 41'>☐</span>
      <span class='ocrx_word' id='word_1_3' title='bbox 430 200 440 228; x_wconf 12'> </span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

func TestParseHOCR(t *testing.T) {
	blocks, err := parseHOCR(sampleHOCR, 2)
	if err != nil {
		t.Fatalf("parseHOCR() error = %v", err)
	}

	if len(blocks) != 2 {
		t.Fatalf("expected 2 words (blank word skipped), got %d", len(blocks))
	}

	first := blocks[0]
	if first.Text != "Vorname:" {
		t.Errorf("expected first word 'Vorname:', got %q", first.Text)
	}
	if first.BBox != (Rect{X0: 100, Y0: 200, X1: 190, Y1: 228}) {
		t.Errorf("unexpected bbox %+v", first.BBox)
	}
	if first.Confidence != 93 {
		t.Errorf("expected confidence 93, got %.0f", first.Confidence)
	}
	if first.Page != 2 {
		t.Errorf("expected page 2, got %d", first.Page)
	}
}

func TestParseHOCR_Invalid(t *testing.T) {
	if _, err := parseHOCR("<html><body>", 1); err == nil {
		t.Error("expected error for truncated HOCR")
	}
}

func TestParseHOCR_StyledWordsAndMissingBBox(t *testing.T) {
	doc := `<html><body><div class='ocr_page'>
  <span class='ocr_line'>
    <span class='ocrx_word' title='bbox 10 10 60 30; x_wconf 90'><strong>Name</strong></span>
    <span class='ocrx_word' title='x_wconf 90'>orphan</span>
    <span class='ocrx_word' title='bbox 70 10 120 30'><em>Straße</em></span>
  </span>
</div></body></html>`

	blocks, err := parseHOCR(doc, 1)
	if err != nil {
		t.Fatalf("parseHOCR() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 words, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "Name" || blocks[1].Text != "Straße" {
		t.Errorf("unexpected words %q, %q", blocks[0].Text, blocks[1].Text)
	}
	if blocks[1].Confidence != 0 {
		t.Errorf("word without x_wconf got confidence %.0f", blocks[1].Confidence)
	}
}

func TestTitleProperties(t *testing.T) {
	props := titleProperties(`image "page.png"; bbox 1 2 3 4; x_wconf 88`)

	if r, ok := props.rect("bbox"); !ok || r != (Rect{X0: 1, Y0: 2, X1: 3, Y1: 4}) {
		t.Errorf("rect(bbox) = %+v, %v", r, ok)
	}
	if c, ok := props.number("x_wconf"); !ok || c != 88 {
		t.Errorf("number(x_wconf) = %.0f, %v", c, ok)
	}
	if _, ok := props.number("missing"); ok {
		t.Error("number(missing) reported ok")
	}

	bad := []string{"bbox 1 2 3", "bbox 1 2 x 4", "bbox 5 5 1 1"}
	for _, title := range bad {
		if _, ok := titleProperties(title).rect("bbox"); ok {
			t.Errorf("rect accepted %q", title)
		}
	}
}
